// Package session implements the server-side session record backing the
// browser cookie: authenticated identity, one-shot flash notices, and the
// post-login return destination.
package session

import "time"

// Flash categories rendered by the views.
const (
	FlashErrors  = "errors"
	FlashSuccess = "success"
	FlashInfo    = "info"
)

// Flash is a one-shot notice queued for the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session binds a browser to an optional authenticated identity.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ReturnTo  string    `json:"return_to,omitempty"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

// AddFlash queues a notice for the next rendered page.
func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// TakeFlashes drains and returns the queued notices grouped by category.
func (s *Session) TakeFlashes() map[string][]string {
	if len(s.Flashes) == 0 {
		return nil
	}
	grouped := make(map[string][]string, len(s.Flashes))
	for _, f := range s.Flashes {
		grouped[f.Category] = append(grouped[f.Category], f.Message)
	}
	s.Flashes = nil
	return grouped
}

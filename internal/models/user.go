package models

import "time"

// User captures a customer account of the store, including the optional
// Facebook linkage and the transient password-reset state.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Location string `json:"location"`
	Website  string `json:"website"`

	// Facebook linkage. Both fields are set together when the account is
	// linked and cleared together on unlink.
	FacebookID    string `json:"-"`
	FacebookToken string `json:"-"`

	// Reset-token state. Both fields are set together by a reset request
	// and cleared together when the reset completes.
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// HasProvider reports whether the named OAuth provider is linked.
func (u User) HasProvider(kind string) bool {
	switch kind {
	case ProviderFacebook:
		return u.FacebookID != ""
	default:
		return false
	}
}

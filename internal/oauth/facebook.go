// Package oauth implements the Facebook login handshake.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Profile is the identity returned by the Facebook Graph API.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Facebook drives the authorization-code handshake against Facebook and
// resolves the access token to a Graph profile.
type Facebook struct {
	config   *oauth2.Config
	graphURL string
	client   *http.Client
}

// NewFacebook creates the handshake client. redirectURL must match the
// callback registered on the Facebook app.
func NewFacebook(clientID, clientSecret, redirectURL string) *Facebook {
	return &Facebook{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		graphURL: "https://graph.facebook.com/me",
		client:   http.DefaultClient,
	}
}

// AuthCodeURL returns the Facebook consent URL for the given state.
func (f *Facebook) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

// Exchange swaps the callback code for an access token.
func (f *Facebook) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return token, nil
}

// FetchProfile resolves the access token to id, name, and email.
func (f *Facebook) FetchProfile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	endpoint := f.graphURL + "?fields=id,name,email&access_token=" + url.QueryEscape(token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Profile{}, fmt.Errorf("graph api status %d: %s", resp.StatusCode, body)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("graph api returned empty profile id")
	}
	return profile, nil
}

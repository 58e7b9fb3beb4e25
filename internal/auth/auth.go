// Package auth handles Spotify OAuth for web sessions and the JWT access
// tokens used by API clients.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// ErrMissingCredentials is returned when the Spotify client ID or secret is not set.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrAuthDenied is returned when Spotify reports an error on the callback.
	ErrAuthDenied = errors.New("spotify authorization denied")
)

// Scopes requested from Spotify. Playlist scopes are needed for publishing.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// Authenticator runs the Spotify authorization code flow on behalf of web users.
type Authenticator struct {
	auth *spotifyauth.Authenticator
}

// New creates an Authenticator for a registered Spotify application.
// Returns ErrMissingCredentials if clientID or clientSecret is empty.
func New(clientID, clientSecret, redirectURL string) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(Scopes...),
	)
	return &Authenticator{auth: auth}, nil
}

// AuthURL returns the Spotify authorize URL for a state value.
func (a *Authenticator) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange validates an OAuth callback request and exchanges its code for a token.
func (a *Authenticator) Exchange(ctx context.Context, r *http.Request, expectedState string) (*oauth2.Token, error) {
	if r.URL.Query().Get("state") != expectedState {
		return nil, ErrStateMismatch
	}
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		return nil, fmt.Errorf("%w: %s", ErrAuthDenied, errMsg)
	}

	token, err := a.auth.Token(ctx, expectedState, r)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return token, nil
}

// Fresh returns token unchanged while it is valid, otherwise a refreshed token.
func (a *Authenticator) Fresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, errors.New("token expired and cannot be refreshed")
	}

	fresh, err := a.auth.RefreshToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}
	return fresh, nil
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

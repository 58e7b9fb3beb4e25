// Package spotify provides a stateless wrapper around the Spotify Web API.
// Every call takes the user's access token explicitly; no credential is
// stored on the Client.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var (
	// ErrSourceUnavailable wraps any failure talking to the Spotify API.
	ErrSourceUnavailable = errors.New("music source unavailable")
	// ErrMissingCredential is returned when a call is made without an access token.
	ErrMissingCredential = errors.New("missing music credential")
)

const defaultTimeout = 10 * time.Second

// Client builds a short-lived API client per call from the caller's credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternative API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Spotify client.
func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// api returns a Spotify API client authorized with credential.
func (c *Client) api(ctx context.Context, credential string) (*spotify.Client, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.httpClient.Timeout

	var opts []spotify.ClientOption
	if c.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.baseURL))
	}
	return spotify.New(hc, opts...), nil
}

// Profile is the subset of the Spotify user profile VibeCheck stores.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// CurrentUser returns the profile of the credential's owner.
func (c *Client) CurrentUser(ctx context.Context, credential string) (*Profile, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}
	user, err := api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: getting current user: %w", ErrSourceUnavailable, err)
	}
	return &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

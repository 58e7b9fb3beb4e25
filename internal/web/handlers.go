package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/justestif/vibecheck/internal/auth"
	"github.com/justestif/vibecheck/internal/chat"
	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/playlists"
	"github.com/justestif/vibecheck/internal/spotify"
)

const stateCookieName = "oauth_state"

// OAuth runs the Spotify authorization code flow.
type OAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, r *http.Request, expectedState string) (*oauth2.Token, error)
	Fresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// ProfileFetcher looks up the Spotify profile behind an access token.
type ProfileFetcher interface {
	CurrentUser(ctx context.Context, credential string) (*spotify.Profile, error)
}

// UserStore persists user profiles.
type UserStore interface {
	Get(ctx context.Context, id string) (*db.User, error)
	Upsert(ctx context.Context, user *db.User) error
}

// ChatService is the conversation API used by the handlers.
type ChatService interface {
	CreateChat(ctx context.Context, userID string) (*db.Chat, error)
	GetChat(ctx context.Context, chatID uuid.UUID, userID string) (*db.Chat, error)
	ListChats(ctx context.Context, userID string) ([]db.Chat, error)
	ProcessUserMessage(ctx context.Context, chatID uuid.UUID, userID, text, credential string) (*chat.Result, error)
}

// PlaylistService is the playlist API used by the handlers.
type PlaylistService interface {
	Create(ctx context.Context, ownerID, title, description string, trackIDs []string) (*db.Playlist, error)
	Get(ctx context.Context, id uuid.UUID) (*db.Playlist, error)
	ListForOwner(ctx context.Context, ownerID string) ([]db.Playlist, error)
	Update(ctx context.Context, id uuid.UUID, ownerID string, in playlists.UpdateInput) (*db.Playlist, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
	AddTracks(ctx context.Context, id uuid.UUID, ownerID string, trackIDs []string) (*db.Playlist, error)
	RemoveTracks(ctx context.Context, id uuid.UUID, ownerID string, trackIDs []string) (*db.Playlist, error)
	Publish(ctx context.Context, id uuid.UUID, ownerID, credential string) (*spotify.PublishedPlaylist, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	oauth     OAuth
	profiles  ProfileFetcher
	users     UserStore
	sessions  SessionManager
	tokens    *auth.Issuer
	chats     ChatService
	playlists PlaylistService
	health    HealthChecker
	logger    *logrus.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg ServerConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{
		oauth:     cfg.OAuth,
		profiles:  cfg.Profiles,
		users:     cfg.Users,
		sessions:  cfg.Sessions,
		tokens:    cfg.Tokens,
		chats:     cfg.Chats,
		playlists: cfg.Playlists,
		health:    cfg.Health,
		logger:    logger,
	}
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback). It records
// the user's profile and starts a session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing state cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	token, err := h.oauth.Exchange(r.Context(), r, stateCookie.Value)
	switch {
	case errors.Is(err, auth.ErrStateMismatch), errors.Is(err, auth.ErrAuthDenied):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}

	profile, err := h.profiles.CurrentUser(r.Context(), token.AccessToken)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	user := &db.User{ID: profile.ID, DisplayName: profile.DisplayName, Email: profile.Email}
	if err := h.users.Upsert(r.Context(), user); err != nil {
		h.internalError(w, r, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), token, profile.ID, profile.DisplayName)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	setCookie(w, session)

	h.logger.WithFields(logrus.Fields{
		"component": "web",
		"user_id":   profile.ID,
	}).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := sessionFromRequest(r, h.sessions); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Health reports service health (GET /api/health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.WithError(err).Warn("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AuthURL returns the Spotify authorize URL (GET /api/auth/spotify/auth-url).
// The state is also set as a cookie so the callback can verify it.
func (h *Handlers) AuthURL(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": h.oauth.AuthURL(state)})
}

// IssueToken returns a bearer token for the current session (POST /api/auth/token).
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	if u.session == nil {
		writeError(w, http.StatusUnauthorized, "a login session is required")
		return
	}

	token, expires, err := h.tokens.Issue(u.id, u.session.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	})
}

// Me returns the current user (GET /api/auth/me).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())

	resp := userResponse{ID: u.id}
	if h.users != nil {
		user, err := h.users.Get(r.Context(), u.id)
		switch {
		case err == nil:
			resp.DisplayName = user.DisplayName
			resp.Email = user.Email
		case !errors.Is(err, db.ErrNotFound):
			h.internalError(w, r, err)
			return
		}
	}
	if resp.DisplayName == "" && u.session != nil {
		resp.DisplayName = u.session.UserName
	}
	writeJSON(w, http.StatusOK, map[string]userResponse{"user": resp})
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

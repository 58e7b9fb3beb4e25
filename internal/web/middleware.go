package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/justestif/vibecheck/internal/chat"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/playlists"
	"github.com/justestif/vibecheck/internal/spotify"
)

type ctxUserKey struct{}

// requestUser is the authenticated caller. session is nil only for bearer
// tokens issued without a session.
type requestUser struct {
	id      string
	session *Session
}

func currentUser(ctx context.Context) requestUser {
	u, _ := ctx.Value(ctxUserKey{}).(requestUser)
	return u
}

// RequireUser authenticates the request with an Authorization bearer token
// or, failing that, the session cookie.
func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u requestUser

		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header")
				return
			}
			claims, err := h.tokens.Verify(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			u.id = claims.UserID
			if claims.SessionID != "" {
				u.session = h.sessions.Get(r.Context(), claims.SessionID)
				if u.session == nil {
					writeError(w, http.StatusUnauthorized, "session expired")
					return
				}
			}
		} else {
			u.session = sessionFromRequest(r, h.sessions)
			if u.session == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			u.id = u.session.UserID
		}

		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: u.id})
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credential returns the Spotify access token to act with: the explicit
// override when given, otherwise the session's token, refreshed and stored
// back when it has expired. An empty result means no credential is available.
func (h *Handlers) credential(ctx context.Context, override string) string {
	if override != "" {
		return override
	}

	u := currentUser(ctx)
	if u.session == nil || u.session.Token == nil {
		return ""
	}

	logger := h.logger.WithFields(logrus.Fields{"component": "web", "user_id": u.id})
	token, err := h.oauth.Fresh(ctx, u.session.Token)
	if err != nil {
		logger.WithError(err).Warn("Spotify token unavailable")
		return ""
	}
	if token.AccessToken != u.session.Token.AccessToken {
		if err := h.sessions.UpdateToken(ctx, u.session.ID, token); err != nil {
			logger.WithError(err).Warn("Storing refreshed Spotify token failed")
		}
	}
	return token.AccessToken
}

// writeServiceError maps domain errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrChatNotFound), errors.Is(err, playlists.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrForbidden), errors.Is(err, playlists.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, playlists.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, spotify.ErrMissingCredential):
		writeError(w, http.StatusBadRequest, "a Spotify access token is required")
	case errors.Is(err, llm.ErrAnalysisFailed):
		h.logger.WithError(err).Warn("Mood analysis failed")
		writeError(w, http.StatusBadGateway, "failed to analyze message")
	case errors.Is(err, spotify.ErrSourceUnavailable):
		h.logger.WithError(err).Warn("Spotify request failed")
		writeError(w, http.StatusBadGateway, "spotify is unavailable")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithFields(logrus.Fields{
		"component": "web",
		"method":    r.Method,
		"path":      r.URL.Path,
	}).WithError(err).Error("Request failed")
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeBodyError reports a request body that could not be decoded.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

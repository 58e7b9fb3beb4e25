package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/vibecheck/internal/db"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 7 * 24 * time.Hour
)

// Session represents an authenticated user session holding the user's Spotify token.
type Session struct {
	ID        string
	Token     *oauth2.Token
	UserID    string
	UserName  string
	CreatedAt time.Time
}

// SessionManager defines the interface for session management.
type SessionManager interface {
	Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string)
	UpdateToken(ctx context.Context, id string, token *oauth2.Token) error
}

// SessionStore manages user sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create generates a new session with the given token and user info.
func (s *SessionStore) Create(_ context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by ID. Expired sessions are not returned.
func (s *SessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || time.Since(session.CreatedAt) > sessionTTL {
		return nil
	}
	out := *session
	return &out
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// UpdateToken replaces the OAuth token of a session.
func (s *SessionStore) UpdateToken(_ context.Context, id string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	session.Token = token
	return nil
}

// DBSessionStore manages user sessions in PostgreSQL.
type DBSessionStore struct {
	database *db.DB
}

// NewDBSessionStore creates a new database-backed session store.
func NewDBSessionStore(database *db.DB) *DBSessionStore {
	return &DBSessionStore{database: database}
}

// Create generates a new session and stores it in the database.
func (s *DBSessionStore) Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dbSession := &db.Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(sessionTTL),
	}

	if err := s.database.Sessions().Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
	}, nil
}

// Get retrieves an unexpired session by ID from the database.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	dbSession, err := s.database.Sessions().Get(ctx, id)
	if err != nil {
		return nil
	}

	var userName string
	user, err := s.database.Users().Get(ctx, dbSession.UserID)
	if err == nil {
		userName = user.DisplayName
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil
	}

	return &Session{
		ID: dbSession.ID,
		Token: &oauth2.Token{
			AccessToken:  dbSession.AccessToken,
			RefreshToken: dbSession.RefreshToken,
			Expiry:       dbSession.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:    dbSession.UserID,
		UserName:  userName,
		CreatedAt: dbSession.CreatedAt,
	}
}

// Delete removes a session from the database.
func (s *DBSessionStore) Delete(ctx context.Context, id string) {
	_ = s.database.Sessions().Delete(ctx, id)
}

// UpdateToken stores a refreshed OAuth token for a session.
func (s *DBSessionStore) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	return s.database.Sessions().UpdateToken(ctx, id, token.AccessToken, token.RefreshToken, token.Expiry)
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// sessionFromRequest resolves the session named by the request cookie.
func sessionFromRequest(r *http.Request, sessions SessionManager) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return sessions.Get(r.Context(), cookie.Value)
}

func setCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

var (
	_ SessionManager = (*SessionStore)(nil)
	_ SessionManager = (*DBSessionStore)(nil)
)

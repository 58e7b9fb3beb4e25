package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/justestif/vibecheck/internal/auth"
	"github.com/justestif/vibecheck/internal/chat"
	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/playlists"
	"github.com/justestif/vibecheck/internal/spotify"
)

type fakeOAuth struct {
	token       *oauth2.Token
	exchangeErr error
	refreshed   *oauth2.Token
}

func (f *fakeOAuth) AuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (f *fakeOAuth) Exchange(_ context.Context, r *http.Request, expectedState string) (*oauth2.Token, error) {
	if r.URL.Query().Get("state") != expectedState {
		return nil, auth.ErrStateMismatch
	}
	return f.token, f.exchangeErr
}

func (f *fakeOAuth) Fresh(_ context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}
	if f.refreshed == nil {
		return nil, errors.New("cannot refresh")
	}
	return f.refreshed, nil
}

type fakeProfiles struct{}

func (fakeProfiles) CurrentUser(_ context.Context, credential string) (*spotify.Profile, error) {
	if credential == "" {
		return nil, spotify.ErrMissingCredential
	}
	return &spotify.Profile{ID: "spotify-user", DisplayName: "Sam", Email: "sam@example.com"}, nil
}

type fakeUsers struct {
	users map[string]*db.User
}

func (f *fakeUsers) Get(_ context.Context, id string) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Upsert(_ context.Context, user *db.User) error {
	f.users[user.ID] = user
	return nil
}

type fakeChats struct {
	chats      map[uuid.UUID]*db.Chat
	credential string
	text       string
	processErr error
}

func (f *fakeChats) CreateChat(_ context.Context, userID string) (*db.Chat, error) {
	c := &db.Chat{ID: uuid.New(), Participants: []string{userID}, Messages: []db.Message{}}
	f.chats[c.ID] = c
	return c, nil
}

func (f *fakeChats) GetChat(_ context.Context, chatID uuid.UUID, userID string) (*db.Chat, error) {
	c, ok := f.chats[chatID]
	if !ok {
		return nil, chat.ErrChatNotFound
	}
	if !c.HasParticipant(userID) {
		return nil, chat.ErrForbidden
	}
	return c, nil
}

func (f *fakeChats) ListChats(_ context.Context, userID string) ([]db.Chat, error) {
	var out []db.Chat
	for _, c := range f.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChats) ProcessUserMessage(ctx context.Context, chatID uuid.UUID, userID, text, credential string) (*chat.Result, error) {
	if _, err := f.GetChat(ctx, chatID, userID); err != nil {
		return nil, err
	}
	f.credential = credential
	f.text = text
	if f.processErr != nil {
		return nil, f.processErr
	}
	result := &chat.Result{
		Response: "Here you go",
		Analysis: &llm.MoodAnalysis{Mood: "happy", EnergyLevel: "high", SuggestedSize: 10},
	}
	if credential != "" {
		result.Playlist = &chat.PlaylistSummary{ID: uuid.New(), Title: "VibeCheck - happy", TrackCount: 10}
	}
	return result, nil
}

// fakePlaylists wraps the real service over an in-memory store so that
// ownership and validation behave as in production.
type fakePlaylists struct {
	*playlists.Service
	publishCredential string
}

type memoryPlaylists struct {
	items map[uuid.UUID]db.Playlist
}

func (m *memoryPlaylists) Create(_ context.Context, p *db.Playlist) error {
	p.ID = uuid.New()
	m.items[p.ID] = *p
	return nil
}

func (m *memoryPlaylists) Get(_ context.Context, id uuid.UUID) (*db.Playlist, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (m *memoryPlaylists) ListForOwner(_ context.Context, ownerID string) ([]db.Playlist, error) {
	out := []db.Playlist{}
	for _, p := range m.items {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryPlaylists) Modify(_ context.Context, id uuid.UUID, fn func(*db.Playlist) error) (*db.Playlist, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	p.TrackIDs = append([]string{}, p.TrackIDs...)
	if err := fn(&p); err != nil {
		return nil, err
	}
	m.items[id] = p
	return &p, nil
}

func (m *memoryPlaylists) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryPlaylists) SetSpotifyPlaylistID(_ context.Context, id uuid.UUID, spotifyID string) error {
	p, ok := m.items[id]
	if !ok {
		return db.ErrNotFound
	}
	p.SpotifyPlaylistID = &spotifyID
	m.items[id] = p
	return nil
}

type recordingPublisher struct {
	owner *fakePlaylists
}

func (p recordingPublisher) Publish(_ context.Context, credential, name, _ string, _ []string) (*spotify.PublishedPlaylist, error) {
	p.owner.publishCredential = credential
	return &spotify.PublishedPlaylist{ID: "sp-1", Name: name, ExternalURL: "https://open.spotify.com/playlist/sp-1"}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type testEnv struct {
	handler   http.Handler
	oauth     *fakeOAuth
	users     *fakeUsers
	sessions  *SessionStore
	tokens    *auth.Issuer
	chats     *fakeChats
	playlists *fakePlaylists
	health    *fakeHealth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		oauth:    &fakeOAuth{token: &oauth2.Token{AccessToken: "spotify-access", RefreshToken: "spotify-refresh", Expiry: time.Now().Add(time.Hour)}},
		users:    &fakeUsers{users: map[string]*db.User{}},
		sessions: NewSessionStore(),
		tokens:   auth.NewIssuer("test-secret", time.Hour),
		chats:    &fakeChats{chats: map[uuid.UUID]*db.Chat{}},
		health:   &fakeHealth{},
	}
	env.playlists = &fakePlaylists{}
	env.playlists.Service = playlists.New(
		&memoryPlaylists{items: map[uuid.UUID]db.Playlist{}},
		recordingPublisher{owner: env.playlists},
		playlists.WithLogger(logger),
	)

	srv, err := NewServer(ServerConfig{
		OAuth:     env.oauth,
		Profiles:  fakeProfiles{},
		Users:     env.users,
		Sessions:  env.sessions,
		Tokens:    env.tokens,
		Chats:     env.chats,
		Playlists: env.playlists,
		Health:    env.health,
		Logger:    logger,
	})
	require.NoError(t, err)
	env.handler = srv.Handler()
	return env
}

// login creates a session for userID and returns its cookie.
func (e *testEnv) login(t *testing.T, userID string, token *oauth2.Token) (*Session, *http.Cookie) {
	t.Helper()
	session, err := e.sessions.Create(context.Background(), token, userID, "Test User")
	require.NoError(t, err)
	return session, &http.Cookie{Name: sessionCookieName, Value: session.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authorize func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if authorize != nil {
		authorize(req)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "session-token", Expiry: time.Now().Add(time.Hour)}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])

	env.health.err = errors.New("db down")
	rr = env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequireUser(t *testing.T) {
	env := newTestEnv(t)
	session, cookie := env.login(t, "alice", validToken())

	sessionToken, _, err := env.tokens.Issue("alice", session.ID)
	require.NoError(t, err)
	statelessToken, _, err := env.tokens.Issue("alice", "")
	require.NoError(t, err)
	orphanToken, _, err := env.tokens.Issue("alice", "deleted-session")
	require.NoError(t, err)

	tests := []struct {
		name string
		auth func(*http.Request)
		want int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"unknown cookie", withCookie(&http.Cookie{Name: sessionCookieName, Value: "nope"}), http.StatusUnauthorized},
		{"session cookie", withCookie(cookie), http.StatusOK},
		{"bearer with session", withBearer(sessionToken), http.StatusOK},
		{"bearer without session", withBearer(statelessToken), http.StatusOK},
		{"bearer for ended session", withBearer(orphanToken), http.StatusUnauthorized},
		{"garbage bearer", withBearer("not-a-jwt"), http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/chats", nil, tt.auth)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestIssueTokenAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.users.users["alice"] = &db.User{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	_, cookie := env.login(t, "alice", validToken())

	rr := env.do(t, http.MethodPost, "/api/auth/token", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rr.Code)
	tok := decode[tokenResponse](t, rr)
	assert.Equal(t, "Bearer", tok.TokenType)

	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, withBearer(tok.AccessToken))
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[map[string]userResponse](t, rr)["user"]
	assert.Equal(t, userResponse{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}, me)
}

func TestAuthURL(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/auth/spotify/auth-url", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	url := decode[map[string]string](t, rr)["url"]
	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, "https://accounts.spotify.com/authorize?state="+state, url)
}

func TestLoginCallback(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/auth/login", nil, nil)
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	var stateCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.Contains(t, rr.Header().Get("Location"), stateCookie.Value)

	t.Run("missing state cookie", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/callback?state=x&code=y", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/callback?state=other&code=y", nil, withCookie(stateCookie))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("success", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/callback?state="+stateCookie.Value+"&code=y", nil, withCookie(stateCookie))
		require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

		var sessionCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == sessionCookieName {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie)

		session := env.sessions.Get(context.Background(), sessionCookie.Value)
		require.NotNil(t, session)
		assert.Equal(t, "spotify-user", session.UserID)
		assert.Equal(t, "spotify-access", session.Token.AccessToken)

		require.Contains(t, env.users.users, "spotify-user")
		assert.Equal(t, "sam@example.com", env.users.users["spotify-user"].Email)

		rr = env.do(t, http.MethodPost, "/auth/logout", nil, withCookie(sessionCookie))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Nil(t, env.sessions.Get(context.Background(), sessionCookie.Value))
	})
}

func TestChatEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.login(t, "alice", validToken())
	_, bob := env.login(t, "bob", validToken())

	rr := env.do(t, http.MethodPost, "/api/chats", nil, withCookie(alice))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[map[string]chatView](t, rr)["chat"]
	assert.Equal(t, []string{"alice"}, created.Participants)

	chatPath := "/api/chats/" + created.ID.String()

	rr = env.do(t, http.MethodGet, chatPath, nil, withCookie(alice))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, chatPath, nil, withCookie(bob))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/chats/"+uuid.NewString(), nil, withCookie(alice))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/chats/not-a-uuid", nil, withCookie(alice))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/chats", nil, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[map[string][]chatView](t, rr)["chats"], 1)
}

func TestSendMessage(t *testing.T) {
	t.Run("uses session token as credential", func(t *testing.T) {
		env := newTestEnv(t)
		_, cookie := env.login(t, "alice", validToken())
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
			map[string]string{"message": "I feel great"}, withCookie(cookie))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[sendMessageResponse](t, rr)
		assert.Equal(t, "I feel great", resp.Message)
		assert.Equal(t, "Here you go", resp.Response)
		require.NotNil(t, resp.Playlist)
		assert.Equal(t, 10, resp.Playlist.TrackCount)
		assert.Equal(t, "session-token", env.chats.credential)
	})

	t.Run("body credential overrides session", func(t *testing.T) {
		env := newTestEnv(t)
		_, cookie := env.login(t, "alice", validToken())
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
			map[string]string{"message": "hi", "musicCredential": "explicit"}, withCookie(cookie))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "explicit", env.chats.credential)
	})

	t.Run("expired session token is refreshed and stored", func(t *testing.T) {
		env := newTestEnv(t)
		env.oauth.refreshed = &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}
		expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)}
		session, cookie := env.login(t, "alice", expired)
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
			map[string]string{"message": "hi"}, withCookie(cookie))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "refreshed", env.chats.credential)
		assert.Equal(t, "refreshed", env.sessions.Get(context.Background(), session.ID).Token.AccessToken)
	})

	t.Run("no credential still replies", func(t *testing.T) {
		env := newTestEnv(t)
		token, _, err := env.tokens.Issue("alice", "")
		require.NoError(t, err)
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
			map[string]string{"message": "hi"}, withBearer(token))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, decode[sendMessageResponse](t, rr).Playlist)
		assert.Empty(t, env.chats.credential)
	})

	errorCases := []struct {
		name string
		err  error
		want int
	}{
		{"analysis failure", fmt.Errorf("%w: upstream", llm.ErrAnalysisFailed), http.StatusBadGateway},
		{"empty message", chat.ErrEmptyMessage, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, cookie := env.login(t, "alice", validToken())
			c, _ := env.chats.CreateChat(context.Background(), "alice")
			env.chats.processErr = tt.err

			rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
				map[string]string{"message": "hi"}, withCookie(cookie))
			assert.Equal(t, tt.want, rr.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rr)["error"])
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		_, cookie := env.login(t, "alice", validToken())
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		req := httptest.NewRequest(http.MethodPost, "/api/chats/"+c.ID.String()+"/messages", strings.NewReader("{"))
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		env := newTestEnv(t)
		_, cookie := env.login(t, "alice", validToken())
		c, _ := env.chats.CreateChat(context.Background(), "alice")

		rr := env.do(t, http.MethodPost, "/api/chats/"+c.ID.String()+"/messages",
			map[string]string{"message": strings.Repeat("a", maxBodyBytes)}, withCookie(cookie))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Empty(t, env.chats.text)
	})
}

func TestPlaylistEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.login(t, "alice", validToken())
	_, bob := env.login(t, "bob", &oauth2.Token{})

	rr := env.do(t, http.MethodPost, "/api/playlists",
		map[string]any{"title": "Focus", "description": "deep work", "tracks": []string{"a", "b", "a"}}, withCookie(alice))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[map[string]playlistView](t, rr)["playlist"]
	assert.Equal(t, []string{"a", "b"}, created.Tracks)
	path := "/api/playlists/" + created.ID.String()

	rr = env.do(t, http.MethodPost, "/api/playlists", map[string]any{"title": ""}, withCookie(alice))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, path, nil, withCookie(alice))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/playlists", nil, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[map[string][]playlistView](t, rr)["playlists"], 1)

	rr = env.do(t, http.MethodPut, path, map[string]any{"title": "Deep Focus"}, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Deep Focus", decode[map[string]playlistView](t, rr)["playlist"].Title)

	rr = env.do(t, http.MethodPut, path, map[string]any{"title": "Hijacked"}, withCookie(bob))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, path+"/tracks", map[string]any{"trackIds": []string{"b", "c"}}, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"a", "b", "c"}, decode[map[string]playlistView](t, rr)["playlist"].Tracks)

	rr = env.do(t, http.MethodDelete, path+"/tracks", map[string]any{"trackIds": []string{"a"}}, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"b", "c"}, decode[map[string]playlistView](t, rr)["playlist"].Tracks)

	rr = env.do(t, http.MethodPost, path+"/publish", nil, withCookie(alice))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	published := decode[map[string]string](t, rr)
	assert.Equal(t, "sp-1", published["spotifyPlaylistId"])
	assert.Equal(t, "session-token", env.playlists.publishCredential)

	rr = env.do(t, http.MethodDelete, path, nil, withCookie(bob))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodDelete, path, nil, withCookie(alice))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, path, nil, withCookie(alice))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPublishRequiresCredential(t *testing.T) {
	env := newTestEnv(t)
	token, _, err := env.tokens.Issue("alice", "")
	require.NoError(t, err)

	p, err := env.playlists.Create(context.Background(), "alice", "Mix", "", []string{"a"})
	require.NoError(t, err)

	rr := env.do(t, http.MethodPost, "/api/playlists/"+p.ID.String()+"/publish", nil, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/playlists/"+p.ID.String()+"/publish",
		map[string]string{"spotifyAccessToken": "explicit"}, withBearer(token))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "explicit", env.playlists.publishCredential)
}

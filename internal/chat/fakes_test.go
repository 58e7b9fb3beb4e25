package chat

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/music"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memoryStore is an in-memory ConversationStore.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	chats  map[uuid.UUID]*db.Chat
}

func newMemoryStore() *memoryStore {
	return &memoryStore{chats: make(map[uuid.UUID]*db.Chat)}
}

func (m *memoryStore) Create(_ context.Context, chat *db.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	stored := *chat
	stored.Messages = nil
	m.chats[chat.ID] = &stored
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (*db.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *chat
	out.Messages = append([]db.Message{}, chat.Messages...)
	return &out, nil
}

func (m *memoryStore) ListForUser(_ context.Context, userID string) ([]db.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Chat
	for _, c := range m.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryStore) IsParticipant(_ context.Context, chatID uuid.UUID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return false, db.ErrNotFound
	}
	return chat.HasParticipant(userID), nil
}

func (m *memoryStore) AppendMessage(_ context.Context, msg *db.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return db.ErrNotFound
	}
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Now()
	chat.Messages = append(chat.Messages, *msg)
	chat.UpdatedAt = msg.CreatedAt
	return nil
}

func (m *memoryStore) RecentMessages(_ context.Context, chatID uuid.UUID, limit int) ([]db.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return nil, db.ErrNotFound
	}
	start := max(0, len(chat.Messages)-limit)
	return append([]db.Message{}, chat.Messages[start:]...), nil
}

// fakeAnalyzer returns canned answers and records what it was asked.
type fakeAnalyzer struct {
	analysis   *llm.MoodAnalysis
	analyzeErr error
	narration  string
	narrateErr error
	reply      string

	analyzeHistory []llm.Turn
	narrateCalls   int
	narratedNames  []string
	narratedCount  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, history []llm.Turn) (*llm.MoodAnalysis, error) {
	f.analyzeHistory = history
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	a := *f.analysis
	return &a, nil
}

func (f *fakeAnalyzer) Narrate(_ context.Context, names []string, count int, _ string, _ []llm.Turn) (string, error) {
	f.narrateCalls++
	f.narratedNames = names
	f.narratedCount = count
	return f.narration, f.narrateErr
}

func (f *fakeAnalyzer) Reply(context.Context, string, []llm.Turn) (string, error) {
	return f.reply, nil
}

type recommendCall struct {
	seeds   []string
	targets music.Targets
	limit   int
}

// fakeSource serves search results per query and records calls.
type fakeSource struct {
	mu         sync.Mutex
	results    map[string][]music.Track
	searchErr  error
	recs       []music.Track
	recErr     error
	searches   []string
	limits     []int
	recommends []recommendCall
}

func (f *fakeSource) Search(_ context.Context, query string, limit int, _ string) ([]music.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	f.limits = append(f.limits, limit)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[query], nil
}

func (f *fakeSource) Recommend(_ context.Context, seeds []string, targets music.Targets, limit int, _ string) ([]music.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommends = append(f.recommends, recommendCall{seeds: seeds, targets: targets, limit: limit})
	if f.recErr != nil {
		return nil, f.recErr
	}
	return f.recs[:min(limit, len(f.recs))], nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches) + len(f.recommends)
}

// fakePlaylists stores created playlists in memory.
type fakePlaylists struct {
	created []*db.Playlist
	err     error
}

func (f *fakePlaylists) Create(_ context.Context, ownerID, title, description string, trackIDs []string) (*db.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &db.Playlist{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		TrackIDs:    trackIDs,
	}
	f.created = append(f.created, p)
	return p, nil
}

type publishedEvent struct {
	eventType string
	userID    string
	payload   map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(_ context.Context, eventType, userID string, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType: eventType, userID: userID, payload: payload})
}

func makeTracks(prefix string, n int) []music.Track {
	tracks := make([]music.Track, n)
	for i := range tracks {
		tracks[i] = music.Track{ID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("%s song %d", prefix, i)}
	}
	return tracks
}

// playlistRows is a minimal playlists.Store that records created rows.
type playlistRows struct {
	created []*db.Playlist
}

func (r *playlistRows) Create(_ context.Context, p *db.Playlist) error {
	p.ID = uuid.New()
	r.created = append(r.created, p)
	return nil
}

func (r *playlistRows) Get(_ context.Context, id uuid.UUID) (*db.Playlist, error) {
	for _, p := range r.created {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *playlistRows) ListForOwner(context.Context, string) ([]db.Playlist, error) {
	return nil, nil
}

func (r *playlistRows) Modify(ctx context.Context, id uuid.UUID, fn func(*db.Playlist) error) (*db.Playlist, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, fn(p)
}

func (r *playlistRows) Delete(context.Context, uuid.UUID) error {
	return nil
}

func (r *playlistRows) SetSpotifyPlaylistID(context.Context, uuid.UUID, string) error {
	return nil
}

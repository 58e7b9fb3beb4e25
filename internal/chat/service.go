// Package chat turns user chat messages into replies and, when the mood calls
// for it, freshly generated playlists.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/events"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/music"
	"github.com/justestif/vibecheck/internal/spotify"
)

// Common errors.
var (
	// ErrChatNotFound is returned when the chat does not exist.
	ErrChatNotFound = errors.New("chat not found")
	// ErrForbidden is returned when the user is not a participant of the chat.
	ErrForbidden = errors.New("access denied")
	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("message is required")
)

// Defaults.
const (
	DefaultHistoryLimit = 10
	DefaultPlaylistSize = 20
	DefaultMaxQueries   = 3

	maxSeeds         = 5
	maxNarratedNames = 10
	fallbackMood     = "Mood Playlist"
)

// ConversationStore persists chats and their messages.
type ConversationStore interface {
	Create(ctx context.Context, chat *db.Chat) error
	Get(ctx context.Context, id uuid.UUID) (*db.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]db.Chat, error)
	IsParticipant(ctx context.Context, chatID uuid.UUID, userID string) (bool, error)
	AppendMessage(ctx context.Context, msg *db.Message) error
	RecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]db.Message, error)
}

// MoodAnalyzer interprets messages with a language model.
type MoodAnalyzer interface {
	Analyze(ctx context.Context, text string, history []llm.Turn) (*llm.MoodAnalysis, error)
	Narrate(ctx context.Context, trackNames []string, trackCount int, text string, history []llm.Turn) (string, error)
	Reply(ctx context.Context, text string, history []llm.Turn) (string, error)
}

// TrackSource finds catalog tracks on behalf of a user credential.
type TrackSource interface {
	Search(ctx context.Context, query string, limit int, credential string) ([]music.Track, error)
	Recommend(ctx context.Context, seedIDs []string, targets music.Targets, limit int, credential string) ([]music.Track, error)
}

// PlaylistStore creates playlists.
type PlaylistStore interface {
	Create(ctx context.Context, ownerID, title, description string, trackIDs []string) (*db.Playlist, error)
}

// EventPublisher announces chat activity.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, userID string, payload map[string]any)
}

// Service processes chat messages.
type Service struct {
	chats     ConversationStore
	analyzer  MoodAnalyzer
	tracks    TrackSource
	playlists PlaylistStore
	events    EventPublisher
	logger    *logrus.Logger

	historyLimit   int
	defaultSize    int
	maxQueries     int
	parallelSearch bool
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit sets how many recent messages are sent to the model.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithDefaultSize sets the playlist size used when the model suggests none.
func WithDefaultSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultSize = n
		}
	}
}

// WithMaxQueries sets how many of the model's search queries are run.
func WithMaxQueries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQueries = n
		}
	}
}

// WithParallelSearch runs the search queries concurrently. Results are still
// concatenated in query order.
func WithParallelSearch(enabled bool) Option {
	return func(s *Service) {
		s.parallelSearch = enabled
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a chat service.
func New(chats ConversationStore, analyzer MoodAnalyzer, tracks TrackSource, playlists PlaylistStore, opts ...Option) *Service {
	s := &Service{
		chats:        chats,
		analyzer:     analyzer,
		tracks:       tracks,
		playlists:    playlists,
		logger:       logrus.StandardLogger(),
		historyLimit: DefaultHistoryLimit,
		defaultSize:  DefaultPlaylistSize,
		maxQueries:   DefaultMaxQueries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaylistSummary identifies a playlist created during a chat turn.
type PlaylistSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	TrackCount int       `json:"trackCount"`
}

// Result is the outcome of one chat turn.
type Result struct {
	Response string            `json:"response"`
	Analysis *llm.MoodAnalysis `json:"analysis"`
	Playlist *PlaylistSummary  `json:"playlist"`
}

// CreateChat starts an empty chat for userID.
func (s *Service) CreateChat(ctx context.Context, userID string) (*db.Chat, error) {
	chat := &db.Chat{Participants: []string{userID}, Messages: []db.Message{}}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return chat, nil
}

// GetChat returns a chat with all of its messages.
func (s *Service) GetChat(ctx context.Context, chatID uuid.UUID, userID string) (*db.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return chat, nil
}

// ListChats returns the user's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]db.Chat, error) {
	chats, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// ProcessUserMessage records a user message, asks the analyzer for the mood
// and replies. When the analysis yields search queries and a music credential
// is given, a playlist is generated and stored as well.
//
// Errors from the music source or from playlist creation never fail the turn;
// the analyzer's own reply is used instead. An analysis failure is fatal and
// leaves only the user message in the chat.
func (s *Service) ProcessUserMessage(ctx context.Context, chatID uuid.UUID, userID, text, credential string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ok, err := s.chats.IsParticipant(ctx, chatID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking participant: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	if err := s.appendMessage(ctx, chatID, userID, text); err != nil {
		return nil, err
	}

	recent, err := s.chats.RecentMessages(ctx, chatID, s.historyLimit)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	history := contextWindow(recent, userID)

	analysis, err := s.analyzer.Analyze(ctx, text, history)
	if err != nil {
		return nil, analysisFailed(err)
	}

	result := &Result{Response: analysis.Response, Analysis: analysis}
	if result.Response == "" {
		if result.Response, err = s.analyzer.Reply(ctx, text, history); err != nil {
			return nil, analysisFailed(err)
		}
	}

	if len(analysis.SearchQueries) > 0 && credential != "" {
		summary, reply := s.generatePlaylist(ctx, userID, text, history, analysis, credential)
		result.Playlist = summary
		if reply != "" {
			result.Response = reply
		}
	}

	if err := s.appendMessage(ctx, chatID, db.AssistantSender, result.Response); err != nil {
		return nil, err
	}

	payload := map[string]any{"chatId": chatID.String()}
	if result.Playlist != nil {
		payload["playlistId"] = result.Playlist.ID.String()
	}
	s.publish(ctx, events.ChatMessage, userID, payload)
	return result, nil
}

func (s *Service) appendMessage(ctx context.Context, chatID uuid.UUID, sender, content string) error {
	msg := &db.Message{ChatID: chatID, Sender: sender, Content: content}
	err := s.chats.AppendMessage(ctx, msg)
	if errors.Is(err, db.ErrNotFound) {
		return ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// generatePlaylist searches, deduplicates, backfills and stores a playlist.
// It returns nil when no playlist was produced, and an empty reply when the
// analysis reply should be kept.
func (s *Service) generatePlaylist(ctx context.Context, userID, text string, history []llm.Turn, analysis *llm.MoodAnalysis, credential string) (*PlaylistSummary, string) {
	logger := s.logger.WithFields(logrus.Fields{
		"component": "chat",
		"user_id":   userID,
		"mood":      analysis.Mood,
	})

	target := analysis.SuggestedSize
	if target <= 0 {
		target = s.defaultSize
	}

	candidates, err := s.search(ctx, analysis.SearchQueries, target, credential)
	if err != nil {
		s.contain(ctx, logger, err, "Track search failed")
		return nil, ""
	}

	selected := truncate(dedupe(candidates), target)
	if len(selected) > 0 && len(selected) < target {
		targets := music.TargetsFor(analysis.Mood, analysis.EnergyLevel)
		recs, err := s.tracks.Recommend(ctx, seedIDs(selected, maxSeeds), targets, target-len(selected), credential)
		if err != nil {
			s.contain(ctx, logger, err, "Recommendations failed")
			return nil, ""
		}
		selected = appendBackfill(selected, recs)
	}
	if len(selected) == 0 {
		logger.Info("No tracks found for mood")
		return nil, ""
	}

	mood := analysis.Mood
	if mood == "" {
		mood = fallbackMood
	}
	playlist, err := s.playlists.Create(ctx, userID,
		"VibeCheck - "+mood,
		"Generated based on: "+text,
		music.IDs(selected))
	if err != nil {
		s.contain(ctx, logger, err, "Creating playlist failed")
		return nil, ""
	}

	summary := &PlaylistSummary{ID: playlist.ID, Title: playlist.Title, TrackCount: len(playlist.TrackIDs)}
	logger.WithFields(logrus.Fields{
		"playlist_id": playlist.ID,
		"track_count": summary.TrackCount,
	}).Info("Generated playlist")

	reply, err := s.analyzer.Narrate(ctx, music.Names(stored(selected, playlist.TrackIDs), maxNarratedNames), summary.TrackCount, text, history)
	if err != nil {
		s.contain(ctx, logger, err, "Narrating playlist failed")
		return summary, ""
	}
	return summary, reply
}

// search runs up to maxQueries queries and concatenates their results in query order.
func (s *Service) search(ctx context.Context, queries []string, target int, credential string) ([]music.Track, error) {
	queries = queries[:min(len(queries), s.maxQueries)]
	perQuery := ceilDiv(target, s.maxQueries)
	results := make([][]music.Track, len(queries))

	if s.parallelSearch {
		g, gctx := errgroup.WithContext(ctx)
		for i, q := range queries {
			g.Go(func() error {
				tracks, err := s.tracks.Search(gctx, q, perQuery, credential)
				if err != nil {
					return err
				}
				results[i] = tracks
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, q := range queries {
			tracks, err := s.tracks.Search(ctx, q, perQuery, credential)
			if err != nil {
				return nil, err
			}
			results[i] = tracks
		}
	}

	var all []music.Track
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// contain logs a failure that must not fail the chat turn. Music source
// failures are expected and only logged; anything else is also reported.
func (s *Service) contain(ctx context.Context, logger *logrus.Entry, err error, msg string) {
	if errors.Is(err, spotify.ErrSourceUnavailable) || errors.Is(err, spotify.ErrMissingCredential) || errors.Is(err, llm.ErrAnalysisFailed) {
		logger.WithError(err).Warn(msg)
		return
	}
	logger.WithError(err).Error(msg)
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	}
}

func (s *Service) publish(ctx context.Context, eventType, userID string, payload map[string]any) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, userID, payload)
	}
}

// contextWindow maps stored messages to model turns from userID's point of view.
func contextWindow(messages []db.Message, userID string) []llm.Turn {
	turns := make([]llm.Turn, len(messages))
	for i, m := range messages {
		role := llm.RoleAssistant
		if m.Sender == userID {
			role = llm.RoleUser
		}
		turns[i] = llm.Turn{Role: role, Content: m.Content}
	}
	return turns
}

func analysisFailed(err error) error {
	if errors.Is(err, llm.ErrAnalysisFailed) {
		return fmt.Errorf("analyzing message: %w", err)
	}
	return fmt.Errorf("%w: %w", llm.ErrAnalysisFailed, err)
}

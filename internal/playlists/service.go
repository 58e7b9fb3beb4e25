// Package playlists manages stored playlists and publishes them to Spotify.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/events"
	"github.com/justestif/vibecheck/internal/spotify"
)

// Common errors.
var (
	// ErrNotFound is returned when the playlist does not exist.
	ErrNotFound = errors.New("playlist not found")
	// ErrUnauthorized is returned when the user does not own the playlist.
	ErrUnauthorized = errors.New("not authorized to modify this playlist")
	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Store persists playlists. It is satisfied by *db.PlaylistRepository.
type Store interface {
	Create(ctx context.Context, p *db.Playlist) error
	Get(ctx context.Context, id uuid.UUID) (*db.Playlist, error)
	ListForOwner(ctx context.Context, ownerID string) ([]db.Playlist, error)
	Modify(ctx context.Context, id uuid.UUID, fn func(*db.Playlist) error) (*db.Playlist, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetSpotifyPlaylistID(ctx context.Context, id uuid.UUID, spotifyID string) error
}

// Publisher creates playlists on the user's Spotify account.
type Publisher interface {
	Publish(ctx context.Context, credential, name, description string, trackIDs []string) (*spotify.PublishedPlaylist, error)
}

// EventPublisher announces playlist changes.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, userID string, payload map[string]any)
}

// Service handles playlist CRUD and publishing.
type Service struct {
	store     Store
	publisher Publisher
	events    EventPublisher
	logger    *logrus.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the event publisher.
func WithEvents(p EventPublisher) Option {
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

// New creates a new playlist service.
func New(store Store, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: publisher,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateInput holds the fields to change. Nil fields are left as they are.
type UpdateInput struct {
	Title       *string
	Description *string
	TrackIDs    []string
}

// Create stores a new playlist. Repeated track IDs are dropped, keeping the
// first occurrence.
func (s *Service) Create(ctx context.Context, ownerID, title, description string, trackIDs []string) (*db.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	p := &db.Playlist{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		TrackIDs:    uniqueIDs(nil, trackIDs),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	s.publish(ctx, events.PlaylistCreated, p)
	return p, nil
}

// Get retrieves a playlist by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*db.Playlist, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError("getting playlist", err)
	}
	return p, nil
}

// ListForOwner returns the owner's playlists, newest first.
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]db.Playlist, error) {
	playlists, err := s.store.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return playlists, nil
}

// Update changes a playlist's title, description or tracks.
func (s *Service) Update(ctx context.Context, id uuid.UUID, ownerID string, in UpdateInput) (*db.Playlist, error) {
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
	}

	p, err := s.modify(ctx, id, ownerID, func(p *db.Playlist) {
		if in.Title != nil {
			p.Title = title
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.TrackIDs != nil {
			p.TrackIDs = uniqueIDs(nil, in.TrackIDs)
		}
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.PlaylistUpdated, p)
	return p, nil
}

// AddTracks appends the tracks not already in the playlist.
func (s *Service) AddTracks(ctx context.Context, id uuid.UUID, ownerID string, trackIDs []string) (*db.Playlist, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: track IDs are required", ErrInvalidInput)
	}

	p, err := s.modify(ctx, id, ownerID, func(p *db.Playlist) {
		p.TrackIDs = uniqueIDs(p.TrackIDs, trackIDs)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.PlaylistUpdated, p)
	return p, nil
}

// RemoveTracks removes the given tracks, keeping the order of the rest.
func (s *Service) RemoveTracks(ctx context.Context, id uuid.UUID, ownerID string, trackIDs []string) (*db.Playlist, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: track IDs are required", ErrInvalidInput)
	}

	p, err := s.modify(ctx, id, ownerID, func(p *db.Playlist) {
		p.TrackIDs = slices.DeleteFunc(p.TrackIDs, func(trackID string) bool {
			return slices.Contains(trackIDs, trackID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.PlaylistUpdated, p)
	return p, nil
}

// Delete removes a playlist owned by ownerID.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return storeError("getting playlist", err)
	}
	if p.OwnerID != ownerID {
		return ErrUnauthorized
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return storeError("deleting playlist", err)
	}

	s.publish(ctx, events.PlaylistDeleted, p)
	return nil
}

// Publish creates the playlist on the credential owner's Spotify account and
// records the resulting Spotify playlist ID.
func (s *Service) Publish(ctx context.Context, id uuid.UUID, ownerID, credential string) (*spotify.PublishedPlaylist, error) {
	if credential == "" {
		return nil, spotify.ErrMissingCredential
	}

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError("getting playlist", err)
	}
	if p.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}

	published, err := s.publisher.Publish(ctx, credential, p.Title, p.Description, p.TrackIDs)
	if err != nil {
		return nil, fmt.Errorf("publishing playlist: %w", err)
	}

	if err := s.store.SetSpotifyPlaylistID(ctx, id, published.ID); err != nil {
		return nil, storeError("recording spotify playlist", err)
	}
	p.SpotifyPlaylistID = &published.ID

	s.logger.WithFields(logrus.Fields{
		"component":           "playlists",
		"playlist_id":         id,
		"spotify_playlist_id": published.ID,
		"track_count":         len(p.TrackIDs),
	}).Info("Published playlist")
	s.publish(ctx, events.PlaylistPublished, p)
	return published, nil
}

// modify applies fn to the playlist under a row lock after checking ownership.
func (s *Service) modify(ctx context.Context, id uuid.UUID, ownerID string, fn func(*db.Playlist)) (*db.Playlist, error) {
	p, err := s.store.Modify(ctx, id, func(p *db.Playlist) error {
		if p.OwnerID != ownerID {
			return ErrUnauthorized
		}
		fn(p)
		return nil
	})
	if errors.Is(err, ErrUnauthorized) {
		return nil, err
	}
	if err != nil {
		return nil, storeError("updating playlist", err)
	}
	return p, nil
}

func (s *Service) publish(ctx context.Context, eventType string, p *db.Playlist) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, p.OwnerID, map[string]any{
		"playlistId": p.ID.String(),
		"title":      p.Title,
		"trackCount": len(p.TrackIDs),
	})
}

func storeError(action string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

// uniqueIDs appends the IDs from add that are not yet in base. The result
// never contains the same ID twice.
func uniqueIDs(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	seen := make(map[string]bool, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

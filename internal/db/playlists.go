package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlaylistRepository handles playlist database operations.
type PlaylistRepository struct {
	q Querier
}

const playlistColumns = `id, owner_id, title, description, track_ids, spotify_playlist_id, created_at, updated_at`

// Create inserts a new playlist. A nil ID is replaced with a fresh UUID.
func (r *PlaylistRepository) Create(ctx context.Context, p *Playlist) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TrackIDs == nil {
		p.TrackIDs = []string{}
	}

	query := `
		INSERT INTO playlists (id, owner_id, title, description, track_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Description,
		p.TrackIDs,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist by ID.
func (r *PlaylistRepository) Get(ctx context.Context, id uuid.UUID) (*Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1`
	return scanPlaylist(r.q.QueryRow(ctx, query, id))
}

// ListForOwner returns all playlists of an owner, newest first.
func (r *PlaylistRepository) ListForOwner(ctx context.Context, ownerID string) ([]Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	return playlists, rows.Err()
}

// Modify loads a playlist with a row lock, applies fn and writes the result back
// in the same transaction. If fn returns an error nothing is written and the
// error is returned unchanged.
func (r *PlaylistRepository) Modify(ctx context.Context, id uuid.UUID, fn func(*Playlist) error) (*Playlist, error) {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1 FOR UPDATE`
	p, err := scanPlaylist(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	if p.TrackIDs == nil {
		p.TrackIDs = []string{}
	}

	update := `
		UPDATE playlists
		SET title = $2, description = $3, track_ids = $4, spotify_playlist_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, update,
		p.ID,
		p.Title,
		p.Description,
		p.TrackIDs,
		p.SpotifyPlaylistID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating playlist: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

// Delete removes a playlist by ID.
func (r *PlaylistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSpotifyPlaylistID records the Spotify playlist a playlist was published to.
func (r *PlaylistRepository) SetSpotifyPlaylistID(ctx context.Context, id uuid.UUID, spotifyID string) error {
	query := `UPDATE playlists SET spotify_playlist_id = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.q.Exec(ctx, query, id, spotifyID)
	if err != nil {
		return fmt.Errorf("updating spotify playlist id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPlaylist(row pgx.Row) (*Playlist, error) {
	var p Playlist
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.TrackIDs,
		&p.SpotifyPlaylistID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &p, nil
}

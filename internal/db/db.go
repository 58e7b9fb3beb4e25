// Package db provides PostgreSQL database access for VibeCheck.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// Querier is the subset of *pgxpool.Pool used by the repositories.
// It is satisfied by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	q    Querier
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool, q: pool}, nil
}

// NewWithQuerier wraps an existing querier, such as a pgxmock pool.
func NewWithQuerier(q Querier) *DB {
	return &DB{q: q}
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return nil
	}
	return db.pool.Ping(ctx)
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{q: db.q}
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{q: db.q}
}

// Chats returns a ChatRepository.
func (db *DB) Chats() *ChatRepository {
	return &ChatRepository{q: db.q}
}

// Playlists returns a PlaylistRepository.
func (db *DB) Playlists() *PlaylistRepository {
	return &PlaylistRepository{q: db.q}
}

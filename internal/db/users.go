package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UserRepository handles user database operations.
type UserRepository struct {
	q Querier
}

// Get retrieves a user by Spotify user ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, display_name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// Upsert records the profile returned by Spotify at login.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, display_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.DisplayName,
		user.Email,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

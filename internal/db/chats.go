package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChatRepository handles chat and message database operations.
type ChatRepository struct {
	q Querier
}

// Create inserts a new chat. A nil ID is replaced with a fresh UUID.
func (r *ChatRepository) Create(ctx context.Context, chat *Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	if chat.Participants == nil {
		chat.Participants = []string{}
	}

	query := `
		INSERT INTO chats (id, participants, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query, chat.ID, chat.Participants).Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

// Get retrieves a chat with its full message log in append order.
func (r *ChatRepository) Get(ctx context.Context, id uuid.UUID) (*Chat, error) {
	query := `
		SELECT id, participants, created_at, updated_at
		FROM chats
		WHERE id = $1
	`
	var chat Chat
	err := r.q.QueryRow(ctx, query, id).Scan(
		&chat.ID,
		&chat.Participants,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}

	msgQuery := `
		SELECT id, chat_id, sender, content, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, msgQuery, id)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	chat.Messages, err = scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListForUser returns the chats a user participates in, most recently active first.
// Messages are not loaded.
func (r *ChatRepository) ListForUser(ctx context.Context, userID string) ([]Chat, error) {
	query := `
		SELECT id, participants, created_at, updated_at
		FROM chats
		WHERE $1 = ANY(participants)
		ORDER BY updated_at DESC
	`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(
			&chat.ID,
			&chat.Participants,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// IsParticipant reports whether userID takes part in a chat.
// Returns ErrNotFound if the chat does not exist.
func (r *ChatRepository) IsParticipant(ctx context.Context, chatID uuid.UUID, userID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT $2 = ANY(participants) FROM chats WHERE id = $1`, chatID, userID).Scan(&ok)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("querying chat participants: %w", err)
	}
	return ok, nil
}

// AppendMessage appends a message to a chat and touches the chat's updated_at.
// The chat row is locked by the UPDATE, so concurrent appends to the same chat
// are serialized and none is lost. Returns ErrNotFound if the chat does not exist.
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *Message) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, msg.ChatID)
	if err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	insert := `
		INSERT INTO chat_messages (chat_id, sender, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, insert, msg.ChatID, msg.Sender, msg.Content).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a chat, oldest first.
// Returns ErrNotFound if the chat does not exist.
func (r *ChatRepository) RecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]Message, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking chat: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, chat_id, sender, content, created_at
		FROM (
			SELECT id, chat_id, sender, content, created_at
			FROM chat_messages
			WHERE chat_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

package db

import (
	"time"

	"github.com/google/uuid"
)

// AssistantSender is the sender identity of assistant messages.
const AssistantSender = "assistant"

// User represents a Spotify user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Chat is a conversation between its participants and the assistant.
// Messages is only populated by ChatRepository.Get.
type Chat struct {
	ID           uuid.UUID
	Participants []string
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID takes part in the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a single chat message. Messages are immutable once appended.
type Message struct {
	ID        int64
	ChatID    uuid.UUID
	Sender    string
	Content   string
	CreatedAt time.Time
}

// Playlist is an owned, ordered, duplicate-free list of track IDs.
type Playlist struct {
	ID                uuid.UUID
	OwnerID           string
	Title             string
	Description       string
	TrackIDs          []string
	SpotifyPlaylistID *string // nullable - set once published
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Package events publishes VibeCheck domain events on a Redis pub/sub channel.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Event types.
const (
	ChatMessage       = "chat.message"
	PlaylistCreated   = "playlist.created"
	PlaylistUpdated   = "playlist.updated"
	PlaylistDeleted   = "playlist.deleted"
	PlaylistPublished = "playlist.published"
)

// Event is the JSON document sent on the channel.
type Event struct {
	Type    string         `json:"type"`
	UserID  string         `json:"userId"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Publisher sends events to Redis. A nil *Publisher is valid and drops events.
type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *logrus.Logger
}

// New creates a Publisher on an existing client.
func New(rdb *redis.Client, channel string, logger *logrus.Logger) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, logger: logger}
}

// Connect parses a redis:// URL, connects and verifies the connection.
func Connect(ctx context.Context, url, channel string, logger *logrus.Logger) (*Publisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return New(rdb, channel, logger), nil
}

// Publish sends an event. Failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, eventType, userID string, payload map[string]any) {
	if p == nil || p.rdb == nil {
		return
	}

	data, err := json.Marshal(Event{
		Type:    eventType,
		UserID:  userID,
		Payload: payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		p.logger.WithError(err).WithField("type", eventType).Warn("Failed to marshal event")
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		p.logger.WithError(err).WithField("type", eventType).Warn("Failed to publish event")
	}
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justestif/vibecheck/internal/auth"
	"github.com/justestif/vibecheck/internal/chat"
	"github.com/justestif/vibecheck/internal/config"
	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/events"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/playlists"
	"github.com/justestif/vibecheck/internal/spotify"
	"github.com/justestif/vibecheck/internal/web"
)

const sessionCleanupInterval = time.Hour

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    true,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		})
		if err != nil {
			return fmt.Errorf("initializing sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx)
		if err != nil {
			return err
		}
		logger.WithField("applied", applied).Info("Database migrated")
	}

	var publisher *events.Publisher
	if cfg.Redis.URL != "" {
		publisher, err = events.Connect(ctx, cfg.Redis.URL, cfg.Redis.Channel, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	authenticator, err := auth.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL)
	if err != nil {
		return err
	}

	tracks := spotify.New(spotify.WithTimeout(cfg.Spotify.Timeout))
	analyzer := llm.New(cfg.OpenAI.APIKey,
		llm.WithModel(cfg.OpenAI.Model),
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithTimeout(cfg.OpenAI.Timeout),
		llm.WithLogger(logger),
	)

	playlistService := playlists.New(database.Playlists(), tracks,
		playlists.WithEvents(publisher),
		playlists.WithLogger(logger),
	)
	chatService := chat.New(database.Chats(), analyzer, tracks, playlistService,
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
		chat.WithDefaultSize(cfg.Chat.DefaultSize),
		chat.WithParallelSearch(cfg.Chat.ParallelSearch),
		chat.WithPublisher(publisher),
		chat.WithLogger(logger),
	)

	server, err := web.NewServer(web.ServerConfig{
		Addr:      cfg.Server.Address(),
		OAuth:     authenticator,
		Profiles:  tracks,
		Users:     database.Users(),
		Sessions:  web.NewDBSessionStore(database),
		Tokens:    auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Chats:     chatService,
		Playlists: playlistService,
		Health:    database,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cleanupSessions(ctx, database.Sessions(), logger)

	return server.Run(ctx)
}

type expiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// cleanupSessions periodically deletes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions expiredSessionDeleter, logger *logrus.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.WithError(err).Warn("Deleting expired sessions failed")
				continue
			}
			if n > 0 {
				logger.WithField("count", n).Debug("Deleted expired sessions")
			}
		}
	}
}

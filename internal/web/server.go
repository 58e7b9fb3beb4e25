// Package web provides the VibeCheck HTTP server: Spotify login, sessions and
// the JSON API for chats and playlists.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/justestif/vibecheck/internal/auth"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// ServerConfig holds server configuration and dependencies.
type ServerConfig struct {
	Addr string

	OAuth     OAuth
	Profiles  ProfileFetcher
	Users     UserStore
	Sessions  SessionManager
	Tokens    *auth.Issuer
	Chats     ChatService
	Playlists PlaylistService
	Health    HealthChecker
	Logger    *logrus.Logger
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *logrus.Logger
}

// NewServer creates a new server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.OAuth == nil || cfg.Sessions == nil || cfg.Tokens == nil {
		return nil, errors.New("oauth, sessions and tokens are required")
	}
	if cfg.Chats == nil || cfg.Playlists == nil {
		return nil, errors.New("chat and playlist services are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: NewHandlers(cfg),
		logger:   cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // chat turns wait on the model and Spotify
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	// Browser login flow
	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/auth/spotify/auth-url", h.AuthURL)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Post("/auth/token", h.IssueToken)
			r.Get("/auth/me", h.Me)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.CreateChat)
				r.Get("/", h.ListChats)
				r.Get("/{chatID}", h.GetChat)
				r.Post("/{chatID}/messages", h.SendMessage)
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Post("/", h.CreatePlaylist)
				r.Get("/", h.ListPlaylists)
				r.Get("/{playlistID}", h.GetPlaylist)
				r.Put("/{playlistID}", h.UpdatePlaylist)
				r.Delete("/{playlistID}", h.DeletePlaylist)
				r.Post("/{playlistID}/tracks", h.AddTracks)
				r.Delete("/{playlistID}/tracks", h.RemoveTracks)
				r.Post("/{playlistID}/publish", h.PublishPlaylist)
			})
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals
// or when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}
	s.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

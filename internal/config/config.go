// Package config loads VibeCheck configuration from the environment and an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Configuration validation errors.
var (
	// ErrMissingSpotifyCredentials is returned when the Spotify client ID or secret is not set.
	ErrMissingSpotifyCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET")

	// ErrMissingOpenAIKey is returned when OPENAI_API_KEY is not set.
	ErrMissingOpenAIKey = errors.New("missing OPENAI_API_KEY")

	// ErrMissingDatabaseURL is returned when DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL")

	// ErrMissingJWTSecret is returned when JWT_SECRET is not set.
	ErrMissingJWTSecret = errors.New("missing JWT_SECRET")
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Spotify  SpotifyConfig  `envPrefix:"SPOTIFY_"`
	OpenAI   OpenAIConfig   `envPrefix:"OPENAI_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Sentry   SentryConfig   `envPrefix:"SENTRY_"`
	Chat     ChatConfig     `envPrefix:"CHAT_"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8080"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SpotifyConfig holds Spotify OAuth application settings.
type SpotifyConfig struct {
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	RedirectURL  string        `env:"REDIRECT_URI" envDefault:"http://127.0.0.1:8080/callback"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// OpenAIConfig holds language model settings.
type OpenAIConfig struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string        `env:"BASE_URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL         string `env:"URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
}

// RedisConfig holds the optional event bus settings. Events are disabled when URL is empty.
type RedisConfig struct {
	URL     string `env:"URL"`
	Channel string `env:"CHANNEL" envDefault:"vibecheck.events"`
}

// JWTConfig holds API token settings.
type JWTConfig struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"168h"`
}

// SentryConfig holds error reporting settings. Reporting is disabled when DSN is empty.
type SentryConfig struct {
	DSN              string  `env:"DSN"`
	Environment      string  `env:"ENVIRONMENT" envDefault:"development"`
	TracesSampleRate float64 `env:"TRACES_SAMPLE_RATE" envDefault:"0.2"`
}

// ChatConfig tunes the message-to-playlist pipeline.
type ChatConfig struct {
	HistoryLimit   int  `env:"HISTORY_LIMIT" envDefault:"10"`
	DefaultSize    int  `env:"DEFAULT_PLAYLIST_SIZE" envDefault:"20"`
	ParallelSearch bool `env:"PARALLEL_SEARCH" envDefault:"false"`
}

// Load reads a .env file from the current directory if present, then parses
// the environment into a Config. It does not validate the result.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from the working directory. A missing file is not an error.
func loadDotEnv() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	envPath := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ValidateServe checks everything the HTTP server needs.
func (c Config) ValidateServe() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		errs = append(errs, ErrMissingSpotifyCredentials)
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, ErrMissingOpenAIKey)
	}
	if c.JWT.Secret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, err)
	}
	if c.Chat.HistoryLimit <= 0 {
		errs = append(errs, errors.New("chat history limit must be positive"))
	}
	if c.Chat.DefaultSize <= 0 {
		errs = append(errs, errors.New("default playlist size must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateDatabase checks the settings needed to reach PostgreSQL.
func (c Config) ValidateDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

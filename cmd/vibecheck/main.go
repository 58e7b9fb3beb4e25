// Command vibecheck runs the VibeCheck mood playlist API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justestif/vibecheck/internal/config"
)

var debug bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vibecheck",
		Short:         "Turn how you feel into a Spotify playlist",
		Long:          `vibecheck serves a chat API that reads the mood of a message with a language model, searches Spotify for matching tracks and saves them as a playlist that can be published to the user's account.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug-level logging")

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// loadConfig reads the configuration and builds the application logger.
func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, debug)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level, format string, debug bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}

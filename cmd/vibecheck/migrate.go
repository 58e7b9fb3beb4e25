package main

import (
	"github.com/spf13/cobra"

	"github.com/justestif/vibecheck/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}

			database, err := db.New(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := database.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				logger.Info("Database is up to date")
				return nil
			}
			for _, name := range applied {
				logger.WithField("migration", name).Info("Applied migration")
			}
			return nil
		},
	}
}

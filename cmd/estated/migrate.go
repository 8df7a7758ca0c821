package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"estate-marketplace-backend/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gormDB, err := db.Init(&cfg.Database, db.LogLevel(cfg.Log.Level))
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			slog.Info("database migrated", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-feedback-responder/internal/config"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/sysutil"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQLite schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	log.Info().Str("db", cfg.DBPath).Msg("schema up to date")
	return nil
}

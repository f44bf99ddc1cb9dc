package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/db"
	"github.com/jonathan/jobpulse/internal/db/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the application store schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if cfg.DatabaseURL == "" {
		// Open applies the schema.
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "SQLite schema ready: %s\n", cfg.SQLitePath)
		return store.Close()
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := database.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(out, "Database schema is up to date")
		return nil
	}
	for _, v := range applied {
		_, _ = fmt.Fprintf(out, "Applied migration %s\n", v)
	}
	return nil
}

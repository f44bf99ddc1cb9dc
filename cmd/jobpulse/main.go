// Package main provides the jobpulse CLI: classify job-application emails,
// scan mailboxes into an application store and report on it.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobpulse",
	Short: "Job application email tracker",
	Long: `jobpulse classifies job-application emails, extracts company, role and status,
and reconciles them into a per-user application store.

Configuration can be loaded from a JSON file using --config. Command-line flags
override config file values, and DATABASE_URL, REDIS_URL and JOBPULSE_RULES fill
whatever is still unset.`,
	SilenceUsage: true,
}

var (
	configPath  string
	rulesPath   string
	userID      string
	databaseURL string
	sqlitePath  string
	redisURL    string
	logLevel    string
	logFormat   string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	pf.StringVar(&rulesPath, "rules", "", "Rule base override (.json or .yaml)")
	pf.StringVar(&userID, "user", "", "User that owns reconciled records")
	pf.StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL")
	pf.StringVar(&sqlitePath, "sqlite", "", "SQLite database file (used when no --db-url)")
	pf.StringVar(&redisURL, "redis-url", "", "Redis URL for the distributed reconcile lock")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

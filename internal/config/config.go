// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
	EnvRules       = "JOBPULSE_RULES"
	EnvUserID      = "JOBPULSE_USER"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Identity
	UserID string `json:"user_id,omitempty"` // Owner of reconciled records

	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty"`  // Local SQLite file, used when no database_url
	// RedisURL enables the distributed reconcile lock.
	RedisURL string `json:"redis_url,omitempty" validate:"omitempty,url"`

	// Inputs
	RulesPath   string   `json:"rules,omitempty"`        // JSON or YAML rule base override
	MailboxDirs []string `json:"mailbox_dirs,omitempty"` // Directories of .eml files, one per account

	// Scan
	Concurrency int    `json:"concurrency,omitempty" validate:"gte=0,lte=64"`
	MaxResults  int    `json:"max_results,omitempty" validate:"gte=0"`
	Since       string `json:"since,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// WatchInterval is a Go duration such as "15m".
	WatchInterval string `json:"watch_interval,omitempty"`

	// Observability
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `json:"log_format,omitempty" validate:"omitempty,oneof=json console"`
	MetricsAddr string `json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		UserID:        "default",
		SQLitePath:    filepath.Join(".jobpulse", "jobpulse.db"),
		Concurrency:   4,
		MaxResults:    200,
		WatchInterval: "15m",
		LogLevel:      "info",
		LogFormat:     "console",
		MetricsAddr:   "127.0.0.1:9090",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv fills empty fields from the environment. DATABASE_URL is ignored
// when a SQLite path was chosen explicitly.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv(EnvRedisURL)
	}
	if c.RulesPath == "" {
		c.RulesPath = os.Getenv(EnvRules)
	}
	if c.UserID == "" {
		c.UserID = os.Getenv(EnvUserID)
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Validate mutually exclusive fields
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return fmt.Errorf("config error: 'database_url' and 'sqlite_path' are mutually exclusive")
	}

	if c.WatchInterval != "" {
		d, err := time.ParseDuration(c.WatchInterval)
		if err != nil {
			return fmt.Errorf("config error: invalid 'watch_interval': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'watch_interval' must be positive")
		}
	}

	// Validate file paths exist (if specified)
	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: rules file not found: %s", c.RulesPath)
		}
	}
	for _, dir := range c.MailboxDirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("config error: mailbox directory not found: %s", dir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.UserID == "" {
		result.UserID = defaults.UserID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	// A Postgres URL replaces the local file rather than sitting beside it.
	if result.SQLitePath == "" && result.DatabaseURL == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.RulesPath == "" {
		result.RulesPath = defaults.RulesPath
	}
	if result.Since == "" {
		result.Since = defaults.Since
	}
	if result.WatchInterval == "" {
		result.WatchInterval = defaults.WatchInterval
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if result.MetricsAddr == "" {
		result.MetricsAddr = defaults.MetricsAddr
	}

	if len(result.MailboxDirs) == 0 {
		result.MailboxDirs = defaults.MailboxDirs
	}

	// Int fields: use default if zero
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.MaxResults == 0 {
		result.MaxResults = defaults.MaxResults
	}

	return result
}

// SinceTime parses Since. An empty value yields the zero time.
func (c *Config) SinceTime() (time.Time, error) {
	if c.Since == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", c.Since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid 'since': %w", err)
	}
	return t, nil
}

// Interval parses WatchInterval. An empty value yields fallback.
func (c *Config) Interval(fallback time.Duration) (time.Duration, error) {
	if c.WatchInterval == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(c.WatchInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid 'watch_interval': %w", err)
	}
	return d, nil
}

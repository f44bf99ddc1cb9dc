package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/jobpulse/internal/config"
	"github.com/jonathan/jobpulse/internal/db"
	"github.com/jonathan/jobpulse/internal/db/sqlite"
	"github.com/jonathan/jobpulse/internal/engine"
	"github.com/jonathan/jobpulse/internal/lock"
	"github.com/jonathan/jobpulse/internal/logging"
	"github.com/jonathan/jobpulse/internal/mailbox"
	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/rules"
	"github.com/jonathan/jobpulse/internal/scan"
)

// loadSettings resolves the effective configuration: config file, then
// flags, then environment, then built-in defaults.
func loadSettings() (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Flags override config file values
	if rulesPath != "" {
		cfg.RulesPath = rulesPath
	}
	if userID != "" {
		cfg.UserID = userID
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
		cfg.SQLitePath = ""
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func loadRuleSet(path string) (*rules.RuleSet, error) {
	if path == "" {
		return rules.Default()
	}
	return rules.LoadFile(path)
}

func newEngine(cfg config.Config, logger *zap.Logger) (*engine.Engine, error) {
	rs, err := loadRuleSet(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return engine.New(rs, logger), nil
}

// backend is everything the scan commands need from a store.
type backend interface {
	reconcile.Store
	reconcile.Lister
	scan.TaskStore
}

// openBackend connects to Postgres when a database URL is set and falls back
// to the local SQLite file otherwise.
func openBackend(ctx context.Context, cfg config.Config) (backend, func(), error) {
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return database, database.Close, nil
	}
	store, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// newLocker returns a Redis lock when a Redis URL is set, else nil so the
// reconciler uses its in-process lock.
func newLocker(cfg config.Config) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return lock.NewRedis(client, lock.RedisOptions{}), func() { _ = client.Close() }, nil
}

func mailboxSources(dirs []string, logger *zap.Logger) ([]scan.Source, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("at least one --mailbox directory is required")
	}
	sources := make([]scan.Source, 0, len(dirs))
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("mailbox directory not found: %s", dir)
		}
		sources = append(sources, mailbox.NewDirSource(dir, logger))
	}
	return sources, nil
}

// scanEnv bundles a ready Scanner with its cleanup.
type scanEnv struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *engine.Engine
	store   backend
	scanner *scan.Scanner
	sources []scan.Source
	closers []func()
}

func (e *scanEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	_ = e.logger.Sync()
}

// newScanEnv wires configuration, store, lock, engine and mailboxes.
// mailboxes from flags replace those from the config file.
func newScanEnv(ctx context.Context, mailboxes []string, opts scan.Options) (*scanEnv, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if len(mailboxes) > 0 {
		cfg.MailboxDirs = mailboxes
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = cfg.Concurrency
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = cfg.MaxResults
	}
	if opts.Since.IsZero() {
		if opts.Since, err = cfg.SinceTime(); err != nil {
			return nil, err
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	env := &scanEnv{cfg: cfg, logger: logger}

	sources, err := mailboxSources(cfg.MailboxDirs, logger)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.sources = sources

	env.engine, err = newEngine(cfg, logger)
	if err != nil {
		env.Close()
		return nil, err
	}

	store, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.store = store
	env.closers = append(env.closers, closeStore)

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, closeLocker)

	r := reconcile.New(store, locker, reconcile.WithLogger(logger))
	env.scanner = scan.New(env.engine, r, store, logger, opts)
	return env, nil
}

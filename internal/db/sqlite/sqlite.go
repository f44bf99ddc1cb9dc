// Package sqlite provides a single-file application store for local use,
// backed by the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

var (
	_ reconcile.Store  = (*Store)(nil)
	_ reconcile.Lister = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	company        TEXT NOT NULL,
	role           TEXT NOT NULL,
	platform       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	location       TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	applied_date   TEXT NOT NULL,
	updated_date   TEXT NOT NULL,
	interview_date TEXT NOT NULL DEFAULT '',
	response_date  TEXT NOT NULL DEFAULT '',
	status_history TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_applications_identity ON applications (user_id, company, role, applied_date);
CREATE TABLE IF NOT EXISTS scan_tasks (
	user_id     TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT
);`

const columns = `id, user_id, company, role, platform, status, location, notes,
	applied_date, updated_date, interview_date, response_date, status_history`

// Store is a reconcile.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open handle without touching the schema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

func scanRecord(row interface{ Scan(...any) error }) (*types.ApplicationRecord, error) {
	var (
		rec     types.ApplicationRecord
		updated string
		history string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Company, &rec.Role, &rec.Platform, &rec.Status,
		&rec.Location, &rec.Notes, &rec.AppliedDate, &updated, &rec.InterviewDate, &rec.ResponseDate, &history)
	if err != nil {
		return nil, err
	}
	if updated != "" {
		t, err := time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_date %q: %w", updated, err)
		}
		rec.UpdatedDate = t
	}
	if history != "" {
		if err := json.Unmarshal([]byte(history), &rec.StatusHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
		}
	}
	return &rec, nil
}

func recordArgs(rec *types.ApplicationRecord) ([]any, error) {
	history := rec.StatusHistory
	if history == nil {
		history = []types.StatusHistoryEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status history: %w", err)
	}
	updated := rec.UpdatedDate
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return []any{
		rec.ID.String(), rec.UserID, rec.Company, rec.Role, rec.Platform, string(rec.Status),
		rec.Location, rec.Notes, rec.AppliedDate, updated.Format(time.RFC3339Nano),
		rec.InterviewDate, rec.ResponseDate, string(b),
	}, nil
}

// FindByIdentity implements reconcile.Store.
func (s *Store) FindByIdentity(ctx context.Context, userID, company, role, appliedDate string) (*types.ApplicationRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM applications
		 WHERE user_id = ? AND company = ? AND role = ? AND applied_date = ?
		 LIMIT 1`,
		userID, company, role, appliedDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return rec, nil
}

// FindLatestByCompany implements reconcile.Store. Ties on the applied date
// go to the most recently inserted row. SQLite's lower() folds only ASCII,
// so company names are compared with strings.EqualFold instead.
func (s *Store) FindLatestByCompany(ctx context.Context, userID, company string) (*types.ApplicationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM applications
		 WHERE user_id = ?
		 ORDER BY applied_date DESC, rowid DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find application by company: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		if strings.EqualFold(rec.Company, company) {
			return rec, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find application by company: %w", err)
	}
	return nil, nil
}

// Insert implements reconcile.Store.
func (s *Store) Insert(ctx context.Context, rec *types.ApplicationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO applications (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// Update implements reconcile.Store.
func (s *Store) Update(ctx context.Context, rec *types.ApplicationRecord) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	// Move id and user_id to the WHERE clause.
	args = append(args[2:], args[0], args[1])
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET
			company = ?, role = ?, platform = ?, status = ?, location = ?, notes = ?,
			applied_date = ?, updated_date = ?, interview_date = ?, response_date = ?, status_history = ?
		 WHERE id = ? AND user_id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if n == 0 {
		return reconcile.ErrNotFound
	}
	return nil
}

// ListApplications implements reconcile.Lister.
func (s *Store) ListApplications(ctx context.Context, userID string) ([]types.ApplicationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM applications WHERE user_id = ? ORDER BY applied_date DESC, rowid DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []types.ApplicationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return out, nil
}

// SaveScanTask upserts the user's latest scan task.
func (s *Store) SaveScanTask(ctx context.Context, task *types.ScanTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	var result, finished sql.NullString
	if task.Result != nil {
		b, err := json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal scan result: %w", err)
		}
		result = sql.NullString{String: string(b), Valid: true}
	}
	if task.FinishedAt != nil {
		finished = sql.NullString{String: task.FinishedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_tasks (user_id, id, status, result, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			id = excluded.id, status = excluded.status, result = excluded.result,
			error = excluded.error, started_at = excluded.started_at, finished_at = excluded.finished_at`,
		task.UserID, task.ID.String(), string(task.Status), result, task.Error,
		task.StartedAt.UTC().Format(time.RFC3339Nano), finished)
	if err != nil {
		return fmt.Errorf("failed to save scan task: %w", err)
	}
	return nil
}

// LatestScanTask returns the user's latest scan task, or nil.
func (s *Store) LatestScanTask(ctx context.Context, userID string) (*types.ScanTask, error) {
	var (
		task             types.ScanTask
		result, finished sql.NullString
		started          string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, id, status, result, error, started_at, finished_at FROM scan_tasks WHERE user_id = ?`,
		userID).Scan(&task.UserID, &task.ID, &task.Status, &result, &task.Error, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan task: %w", err)
	}
	if task.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at %q: %w", finished.String, err)
		}
		task.FinishedAt = &t
	}
	if result.Valid {
		task.Result = &types.ScanSummary{}
		if err := json.Unmarshal([]byte(result.String), task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
		}
	}
	return &task, nil
}

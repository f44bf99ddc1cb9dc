package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

var (
	_ reconcile.Store  = (*DB)(nil)
	_ reconcile.Lister = (*DB)(nil)
)

const applicationColumns = `id, user_id, company, role, platform, status, location, notes,
	applied_date, updated_date, interview_date, response_date, status_history`

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*types.ApplicationRecord, error) {
	var (
		rec                 types.ApplicationRecord
		applied             time.Time
		interview, response *time.Time
		history             []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Company, &rec.Role, &rec.Platform, &rec.Status,
		&rec.Location, &rec.Notes, &applied, &rec.UpdatedDate, &interview, &response, &history)
	if err != nil {
		return nil, err
	}
	rec.AppliedDate = dateString(&applied)
	rec.InterviewDate = dateString(interview)
	rec.ResponseDate = dateString(response)
	if err := decodeHistory(history, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func decodeHistory(raw []byte, rec *types.ApplicationRecord) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &rec.StatusHistory); err != nil {
		return fmt.Errorf("failed to unmarshal status history: %w", err)
	}
	return nil
}

func encodeHistory(rec *types.ApplicationRecord) ([]byte, error) {
	history := rec.StatusHistory
	if history == nil {
		history = []types.StatusHistoryEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status history: %w", err)
	}
	return b, nil
}

// FindByIdentity returns the record with exactly this company, role and
// applied date, or nil.
func (db *DB) FindByIdentity(ctx context.Context, userID, company, role, appliedDate string) (*types.ApplicationRecord, error) {
	applied, err := dateParam(appliedDate)
	if err != nil {
		return nil, err
	}
	rec, err := scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 AND company = $2 AND role = $3 AND applied_date = $4
		 LIMIT 1`,
		userID, company, role, applied,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return rec, nil
}

// FindLatestByCompany returns the user's most recently applied record for
// the company, compared case-insensitively, or nil.
func (db *DB) FindLatestByCompany(ctx context.Context, userID, company string) (*types.ApplicationRecord, error) {
	rec, err := scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 AND lower(company) = lower($2)
		 ORDER BY applied_date DESC, updated_date DESC
		 LIMIT 1`,
		userID, company,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application by company: %w", err)
	}
	return rec, nil
}

// Insert stores a new application record, assigning an ID when unset.
func (db *DB) Insert(ctx context.Context, rec *types.ApplicationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	args, err := applicationArgs(rec)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an existing record.
func (db *DB) Update(ctx context.Context, rec *types.ApplicationRecord) error {
	args, err := applicationArgs(rec)
	if err != nil {
		return err
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE applications SET
			company = $3, role = $4, platform = $5, status = $6, location = $7, notes = $8,
			applied_date = $9, updated_date = $10, interview_date = $11, response_date = $12,
			status_history = $13
		 WHERE id = $1 AND user_id = $2`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reconcile.ErrNotFound
	}
	return nil
}

// ListApplications returns all of a user's records, newest applied date first.
func (db *DB) ListApplications(ctx context.Context, userID string) ([]types.ApplicationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1
		 ORDER BY applied_date DESC, updated_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []types.ApplicationRecord
	for rows.Next() {
		rec, err := scanApplication(rows)
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

// applicationArgs returns the row values in applicationColumns order.
func applicationArgs(rec *types.ApplicationRecord) ([]any, error) {
	applied, err := dateParam(rec.AppliedDate)
	if err != nil {
		return nil, err
	}
	if applied == nil {
		return nil, fmt.Errorf("applied date is required")
	}
	interview, err := dateParam(rec.InterviewDate)
	if err != nil {
		return nil, err
	}
	response, err := dateParam(rec.ResponseDate)
	if err != nil {
		return nil, err
	}
	history, err := encodeHistory(rec)
	if err != nil {
		return nil, err
	}
	updated := rec.UpdatedDate
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return []any{
		rec.ID, rec.UserID, rec.Company, rec.Role, rec.Platform, string(rec.Status),
		rec.Location, rec.Notes, applied, updated, interview, response, history,
	}, nil
}

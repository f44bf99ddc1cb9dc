package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobpulse/internal/types"
)

// SaveScanTask upserts the user's latest scan task. Each user holds at most
// one task row.
func (db *DB) SaveScanTask(ctx context.Context, task *types.ScanTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	var result []byte
	if task.Result != nil {
		b, err := json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal scan result: %w", err)
		}
		result = b
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO scan_tasks (user_id, id, status, result, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id, status = EXCLUDED.status, result = EXCLUDED.result,
			error = EXCLUDED.error, started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at`,
		task.UserID, task.ID, string(task.Status), result, task.Error, task.StartedAt, task.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scan task: %w", err)
	}
	return nil
}

// LatestScanTask returns the user's latest scan task, or nil if the user
// never scanned.
func (db *DB) LatestScanTask(ctx context.Context, userID string) (*types.ScanTask, error) {
	var (
		task   types.ScanTask
		result []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, id, status, result, error, started_at, finished_at
		 FROM scan_tasks WHERE user_id = $1`,
		userID,
	).Scan(&task.UserID, &task.ID, &task.Status, &result, &task.Error, &task.StartedAt, &task.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan task: %w", err)
	}
	if len(result) > 0 {
		task.Result = &types.ScanSummary{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
		}
	}
	return &task, nil
}

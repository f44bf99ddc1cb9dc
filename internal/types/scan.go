package types

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a user's scan task.
type ScanStatus string

// Scan task states.
const (
	ScanIdle     ScanStatus = "idle"
	ScanScanning ScanStatus = "scanning"
	ScanDone     ScanStatus = "done"
	ScanError    ScanStatus = "error"
)

// Action tags an affected record in a reconcile result.
type Action string

// Reconcile actions.
const (
	ActionNew     Action = "new"
	ActionUpdated Action = "updated"
)

// AffectedApplication is an extracted application together with what the
// reconciler did with it.
type AffectedApplication struct {
	ExtractedApplication
	ID        uuid.UUID `json:"id"`
	Action    Action    `json:"_action"`
	OldStatus Status    `json:"old_status,omitempty"`
	NewStatus Status    `json:"new_status,omitempty"`
}

// ScanSummary is the batch-level output of one scan pass.
type ScanSummary struct {
	Imported     int                   `json:"imported"`
	Updated      int                   `json:"updated"`
	Skipped      int                   `json:"skipped"`
	Found        int                   `json:"found"`
	Applications []AffectedApplication `json:"applications"`
	Errors       []string              `json:"errors,omitempty"`
}

// ScanTask is the persisted status of a user's most recent scan.
type ScanTask struct {
	ID         uuid.UUID    `json:"id"`
	UserID     string       `json:"user_id"`
	Status     ScanStatus   `json:"status"`
	Result     *ScanSummary `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/jobpulse/internal/types"
)

// ErrNotFound is returned by Update when the record does not exist.
var ErrNotFound = errors.New("application not found")

// Store is the persistence contract the reconciler needs. Finders return
// (nil, nil) when nothing matches.
type Store interface {
	// FindByIdentity returns the record with exactly this company, role and
	// applied date.
	FindByIdentity(ctx context.Context, userID, company, role, appliedDate string) (*types.ApplicationRecord, error)
	// FindLatestByCompany returns the record with the latest applied date
	// whose company matches case-insensitively.
	FindLatestByCompany(ctx context.Context, userID, company string) (*types.ApplicationRecord, error)
	// Insert stores a new record. A zero ID is assigned by the store.
	Insert(ctx context.Context, rec *types.ApplicationRecord) error
	// Update persists status, dates and history of an existing record.
	Update(ctx context.Context, rec *types.ApplicationRecord) error
}

// Lister lists a user's records, newest applied date first.
type Lister interface {
	ListApplications(ctx context.Context, userID string) ([]types.ApplicationRecord, error)
}

// StoreError wraps a failed store call.
type StoreError struct {
	Op      string
	Company string
	Cause   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed for %q: %v", e.Op, e.Company, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

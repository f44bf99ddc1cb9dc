package reconcile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/jobpulse/internal/types"
)

// MemoryStore keeps records and scan tasks in process memory. It backs
// dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*types.ApplicationRecord
	tasks   map[string]*types.ScanTask
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*types.ScanTask)}
}

func copyRecord(r *types.ApplicationRecord) *types.ApplicationRecord {
	c := *r
	c.StatusHistory = append([]types.StatusHistoryEntry(nil), r.StatusHistory...)
	return &c
}

// FindByIdentity implements Store.
func (m *MemoryStore) FindByIdentity(_ context.Context, userID, company, role, appliedDate string) (*types.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Company == company && r.Role == role && r.AppliedDate == appliedDate {
			return copyRecord(r), nil
		}
	}
	return nil, nil
}

// FindLatestByCompany implements Store. Ties on applied date go to the
// record inserted last.
func (m *MemoryStore) FindLatestByCompany(_ context.Context, userID, company string) (*types.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *types.ApplicationRecord
	for _, r := range m.records {
		if r.UserID != userID || !strings.EqualFold(r.Company, company) {
			continue
		}
		if latest == nil || r.AppliedDate >= latest.AppliedDate {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyRecord(latest), nil
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, rec *types.ApplicationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, copyRecord(rec))
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, rec *types.ApplicationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == rec.ID {
			m.records[i] = copyRecord(rec)
			return nil
		}
	}
	return ErrNotFound
}

// ListApplications implements Lister.
func (m *MemoryStore) ListApplications(_ context.Context, userID string) ([]types.ApplicationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ApplicationRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, *copyRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppliedDate > out[j].AppliedDate })
	return out, nil
}

// SaveScanTask stores the user's latest scan task.
func (m *MemoryStore) SaveScanTask(_ context.Context, task *types.ScanTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	c := *task
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.UserID] = &c
	return nil
}

// LatestScanTask returns the user's latest scan task, or nil.
func (m *MemoryStore) LatestScanTask(_ context.Context, userID string) (*types.ScanTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[userID]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

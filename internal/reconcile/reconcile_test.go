package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/jobpulse/internal/lock"
	"github.com/jonathan/jobpulse/internal/types"
)

const userID = "user-1"

var fixedNow = time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)

func newReconciler(t *testing.T, store Store) *Reconciler {
	t.Helper()
	return New(store, lock.NewLocal(),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func extracted(company, role string, emailType types.EmailType, date string) types.ExtractedApplication {
	return types.ExtractedApplication{
		Company:     company,
		Role:        role,
		Platform:    "Company Website",
		Status:      types.StatusFor(emailType),
		EmailType:   emailType,
		AppliedDate: date,
		Notes:       "Auto-imported from Gmail (careers@example.com)",
	}
}

func seed(t *testing.T, store *MemoryStore, company, role string, status types.Status, date string) *types.ApplicationRecord {
	t.Helper()
	rec := &types.ApplicationRecord{
		UserID:      userID,
		Company:     company,
		Role:        role,
		Platform:    "LinkedIn",
		AppliedDate: date,
	}
	rec.AppendStatus(status, fixedNow.Add(-72*time.Hour), "manual")
	require.NoError(t, store.Insert(context.Background(), rec))
	return rec
}

func TestReconcile_RejectionUpdatesExistingApplication(t *testing.T) {
	store := NewMemoryStore()
	existing := seed(t, store, "Acme Corp", "Data Engineer", types.StatusApplied, "2026-03-01")

	summary, err := newReconciler(t, store).Reconcile(context.Background(), userID, []types.ExtractedApplication{
		extracted("Acme Corp", types.UnknownRole, types.EmailTypeRejected, "2026-04-10"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Applications, 1)
	affected := summary.Applications[0]
	assert.Equal(t, types.ActionUpdated, affected.Action)
	assert.Equal(t, existing.ID, affected.ID)
	assert.Equal(t, types.StatusApplied, affected.OldStatus)
	assert.Equal(t, types.StatusRejected, affected.NewStatus)

	rec, err := store.FindLatestByCompany(context.Background(), userID, "acme corp")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, rec.Status)
	assert.Equal(t, "Data Engineer", rec.Role)
	assert.Equal(t, "2026-04-10", rec.ResponseDate)
	assert.Equal(t, fixedNow, rec.UpdatedDate)
	require.Len(t, rec.StatusHistory, 2)
	assert.Equal(t, types.StatusHistoryEntry{Status: types.StatusRejected, Date: fixedNow, Source: types.SourceGmailScan}, rec.StatusHistory[1])
}

func TestReconcile_IdempotentSecondPass(t *testing.T) {
	store := NewMemoryStore()
	r := newReconciler(t, store)
	batch := []types.ExtractedApplication{
		extracted("Globex", "Data Engineer", types.EmailTypeApplied, "2026-04-01"),
		extracted("Acme Corp", "Backend Engineer", types.EmailTypeApplied, "2026-04-02"),
		extracted("Acme Corp", types.UnknownRole, types.EmailTypeRejected, "2026-04-09"),
		extracted("Initech", types.UnknownRole, types.EmailTypeInterview, "2026-04-05"),
	}

	first, err := r.Reconcile(context.Background(), userID, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Imported)
	assert.Equal(t, 1, first.Updated)

	second, err := r.Reconcile(context.Background(), userID, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 4, second.Skipped)
	assert.Empty(t, second.Applications)

	all, err := store.ListApplications(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReconcile_StatusEmailWithoutPriorRecordInserts(t *testing.T) {
	tests := []struct {
		emailType     types.EmailType
		wantStatus    types.Status
		wantInterview string
		wantResponse  string
	}{
		{types.EmailTypeRejected, types.StatusRejected, "", "2026-04-10"},
		{types.EmailTypeInterview, types.StatusInterviewScheduled, "2026-04-10", ""},
		{types.EmailTypeAssessment, types.StatusAssessment, "2026-04-10", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.emailType), func(t *testing.T) {
			store := NewMemoryStore()
			summary, err := newReconciler(t, store).Reconcile(context.Background(), userID, []types.ExtractedApplication{
				extracted("Barclays", types.UnknownRole, tt.emailType, "2026-04-10"),
			})
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Imported)
			assert.Equal(t, types.ActionNew, summary.Applications[0].Action)

			rec, err := store.FindLatestByCompany(context.Background(), userID, "Barclays")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantInterview, rec.InterviewDate)
			assert.Equal(t, tt.wantResponse, rec.ResponseDate)
			require.Len(t, rec.StatusHistory, 1)
			assert.Equal(t, types.SourceGmailScan, rec.StatusHistory[0].Source)
		})
	}
}

func TestReconcile_KeepsExistingInterviewDate(t *testing.T) {
	store := NewMemoryStore()
	existing := seed(t, store, "Initech", "QA Engineer", types.StatusInterviewScheduled, "2026-03-01")
	existing.InterviewDate = "2026-03-20"
	require.NoError(t, store.Update(context.Background(), existing))

	summary, err := newReconciler(t, store).Reconcile(context.Background(), userID, []types.ExtractedApplication{
		extracted("Initech", types.UnknownRole, types.EmailTypeAssessment, "2026-04-10"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	rec, err := store.FindLatestByCompany(context.Background(), userID, "Initech")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAssessment, rec.Status)
	assert.Equal(t, "2026-03-20", rec.InterviewDate)
}

func TestReconcile_MatchesLatestRecordForCompany(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "Acme Corp", "Analyst", types.StatusApplied, "2026-01-05")
	latest := seed(t, store, "ACME CORP", "Data Engineer", types.StatusApplied, "2026-03-05")

	summary, err := newReconciler(t, store).Reconcile(context.Background(), userID, []types.ExtractedApplication{
		extracted("Acme Corp", types.UnknownRole, types.EmailTypeInterview, "2026-04-10"),
	})
	require.NoError(t, err)
	require.Len(t, summary.Applications, 1)
	assert.Equal(t, latest.ID, summary.Applications[0].ID)
}

func TestReconcile_SkipsInvalidAndRepeatedRecords(t *testing.T) {
	store := NewMemoryStore()
	invalid := extracted("X", "Engineer", types.EmailTypeApplied, "2026-04-10")
	badDate := extracted("Globex", "Engineer", types.EmailTypeApplied, "10/04/2026")
	good := extracted("Globex", "Data Engineer", types.EmailTypeApplied, "2026-04-10")
	repeat := good
	repeat.Company = "globex"

	summary, err := newReconciler(t, store).Reconcile(context.Background(), userID,
		[]types.ExtractedApplication{invalid, badDate, good, repeat})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Found)
}

func TestReconcile_MissingDateUsesToday(t *testing.T) {
	store := NewMemoryStore()
	r := newReconciler(t, store)
	batch := []types.ExtractedApplication{extracted("Globex", "Data Engineer", types.EmailTypeApplied, "")}

	_, err := r.Reconcile(context.Background(), userID, batch)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), userID, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)

	rec, err := store.FindByIdentity(context.Background(), userID, "Globex", "Data Engineer", "2026-04-12")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestReconcile_RequiresUser(t *testing.T) {
	_, err := newReconciler(t, NewMemoryStore()).Reconcile(context.Background(), "", nil)
	assert.Error(t, err)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Insert(context.Context, *types.ApplicationRecord) error {
	return f.err
}

func TestReconcile_StoreErrorAbortsPass(t *testing.T) {
	cause := errors.New("connection reset")
	store := &failingStore{MemoryStore: NewMemoryStore(), err: cause}

	summary, err := newReconciler(t, store).Reconcile(context.Background(), userID, []types.ExtractedApplication{
		extracted("Globex", "Data Engineer", types.EmailTypeApplied, "2026-04-10"),
		extracted("Initech", "QA Engineer", types.EmailTypeApplied, "2026-04-10"),
	})
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "insert", storeErr.Op)
	assert.Equal(t, "Globex", storeErr.Company)
	assert.ErrorIs(t, err, cause)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Imported)
}

type recordingLocker struct {
	keys     []string
	released int
}

func (l *recordingLocker) Lock(_ context.Context, key string) (lock.Release, error) {
	l.keys = append(l.keys, key)
	return func() error {
		l.released++
		return nil
	}, nil
}

func TestReconcile_HoldsPerUserLock(t *testing.T) {
	locker := &recordingLocker{}
	r := New(NewMemoryStore(), locker)

	_, err := r.Reconcile(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"reconcile:user-1"}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestShouldUpdate(t *testing.T) {
	rejected := extracted("Acme", types.UnknownRole, types.EmailTypeRejected, "")
	interview := extracted("Acme", types.UnknownRole, types.EmailTypeInterview, "")

	assert.True(t, ShouldUpdate(types.StatusApplied, &rejected))
	assert.True(t, ShouldUpdate(types.StatusInterviewScheduled, &rejected))
	assert.False(t, ShouldUpdate(types.StatusRejected, &rejected))
	assert.True(t, ShouldUpdate(types.StatusApplied, &interview))
	assert.False(t, ShouldUpdate(types.StatusInterviewScheduled, &interview))
	assert.True(t, ShouldUpdate(types.StatusRejected, &interview))
}

func TestMemoryStore_UpdateUnknownRecord(t *testing.T) {
	err := NewMemoryStore().Update(context.Background(), &types.ApplicationRecord{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	rec := seed(t, store, "Acme Corp", "Data Engineer", types.StatusApplied, "2026-03-01")

	got, err := store.FindByIdentity(context.Background(), userID, "Acme Corp", "Data Engineer", "2026-03-01")
	require.NoError(t, err)
	got.Status = types.StatusRejected
	got.StatusHistory[0].Source = "mutated"

	again, err := store.FindByIdentity(context.Background(), userID, "Acme Corp", "Data Engineer", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, rec.Status, again.Status)
	assert.Equal(t, "manual", again.StatusHistory[0].Source)
}

func TestMemoryStore_ScanTasks(t *testing.T) {
	store := NewMemoryStore()
	got, err := store.LatestScanTask(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, got)

	task := &types.ScanTask{UserID: userID, Status: types.ScanScanning, StartedAt: fixedNow}
	require.NoError(t, store.SaveScanTask(context.Background(), task))
	assert.NotEqual(t, uuid.Nil, task.ID)

	task.Status = types.ScanDone
	require.NoError(t, store.SaveScanTask(context.Background(), task))

	got, err = store.LatestScanTask(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanDone, got.Status)
	assert.Equal(t, task.ID, got.ID)
}

func TestComputeStats(t *testing.T) {
	records := []types.ApplicationRecord{
		{Status: types.StatusApplied, Platform: "LinkedIn"},
		{Status: types.StatusRejected, Platform: "LinkedIn"},
		{Status: types.StatusInterviewScheduled, Platform: "Workday"},
	}
	s := ComputeStats(records)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByPlatform["LinkedIn"])
	assert.Equal(t, 1, s.ByStatus[types.StatusRejected])
	assert.Equal(t, 66.7, s.ResponseRate)

	empty := ComputeStats(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.ResponseRate)
}

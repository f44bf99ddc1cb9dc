// Package reconcile merges extracted applications into a user's stored
// application history.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobpulse/internal/engine"
	"github.com/jonathan/jobpulse/internal/lock"
	"github.com/jonathan/jobpulse/internal/logging"
	"github.com/jonathan/jobpulse/internal/metrics"
	"github.com/jonathan/jobpulse/internal/types"
)

// Reconciler applies batches to a Store, one pass per user at a time.
type Reconciler struct {
	store  Store
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = logging.OrNop(l) }
}

// WithClock overrides the time source used for history entries.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler. A nil locker serializes in-process only.
func New(store Store, locker lock.Locker, opts ...Option) *Reconciler {
	if locker == nil {
		locker = lock.NewLocal()
	}
	r := &Reconciler{
		store:  store,
		locker: locker,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ShouldUpdate reports whether a status-update email changes an existing
// record. A rejection always lands unless the record is already rejected,
// which is the same comparison.
func ShouldUpdate(existing types.Status, app *types.ExtractedApplication) bool {
	if app.EmailType == types.EmailTypeRejected {
		return existing != types.StatusRejected
	}
	return existing != app.Status
}

// Reconcile merges batch into userID's records. Invalid and repeated
// records are skipped; a store failure aborts the pass and is returned
// together with the partial summary.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, batch []types.ExtractedApplication) (*types.ScanSummary, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	release, err := r.locker.Lock(ctx, "reconcile:"+userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			r.logger.Warn("failed to release reconcile lock", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	summary := &types.ScanSummary{Applications: []types.AffectedApplication{}}
	dedup := engine.NewDeduper()
	invalid := 0

	for i := range batch {
		app := batch[i]
		if err := app.Validate(); err != nil {
			invalid++
			summary.Skipped++
			r.logger.Warn("skipping invalid application",
				zap.String("company", app.Company),
				zap.String("role", app.Role),
				zap.Error(err),
			)
			continue
		}
		if !dedup.Add(&app) {
			continue
		}
		summary.Found++

		var err error
		if app.EmailType == types.EmailTypeApplied {
			err = r.applied(ctx, userID, &app, summary)
		} else {
			err = r.statusUpdate(ctx, userID, &app, summary)
		}
		if err != nil {
			r.record(summary, invalid)
			return summary, err
		}
	}

	r.record(summary, invalid)
	r.logger.Info("reconcile complete",
		zap.String("user_id", userID),
		zap.Int("found", summary.Found),
		zap.Int("imported", summary.Imported),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (r *Reconciler) record(s *types.ScanSummary, invalid int) {
	metrics.AddReconcileActions("imported", s.Imported)
	metrics.AddReconcileActions("updated", s.Updated)
	metrics.AddReconcileActions("skipped", s.Skipped-invalid)
	metrics.AddReconcileActions("invalid", invalid)
}

func (r *Reconciler) applied(ctx context.Context, userID string, app *types.ExtractedApplication, s *types.ScanSummary) error {
	date := r.eventDate(app, r.now())
	existing, err := r.store.FindByIdentity(ctx, userID, app.Company, app.Role, date)
	if err != nil {
		return &StoreError{Op: "find", Company: app.Company, Cause: err}
	}
	if existing != nil {
		s.Skipped++
		return nil
	}
	return r.insert(ctx, userID, app, s)
}

func (r *Reconciler) statusUpdate(ctx context.Context, userID string, app *types.ExtractedApplication, s *types.ScanSummary) error {
	existing, err := r.store.FindLatestByCompany(ctx, userID, app.Company)
	if err != nil {
		return &StoreError{Op: "find", Company: app.Company, Cause: err}
	}
	if existing == nil {
		return r.insert(ctx, userID, app, s)
	}
	if !ShouldUpdate(existing.Status, app) {
		r.logger.Debug("status unchanged",
			zap.String("company", existing.Company),
			zap.String("status", string(existing.Status)),
		)
		s.Skipped++
		return nil
	}

	now := r.now()
	old := existing.Status
	existing.AppendStatus(app.Status, now, types.SourceGmailScan)
	date := r.eventDate(app, now)
	switch app.EmailType {
	case types.EmailTypeRejected:
		if existing.ResponseDate == "" {
			existing.ResponseDate = date
		}
	case types.EmailTypeInterview, types.EmailTypeAssessment:
		if existing.InterviewDate == "" {
			existing.InterviewDate = date
		}
	}
	if err := r.store.Update(ctx, existing); err != nil {
		return &StoreError{Op: "update", Company: app.Company, Cause: err}
	}

	r.logger.Info("application status updated",
		zap.String("company", existing.Company),
		zap.String("old_status", string(old)),
		zap.String("new_status", string(app.Status)),
	)
	s.Updated++
	s.Applications = append(s.Applications, types.AffectedApplication{
		ExtractedApplication: *app,
		ID:                   existing.ID,
		Action:               types.ActionUpdated,
		OldStatus:            old,
		NewStatus:            app.Status,
	})
	return nil
}

func (r *Reconciler) insert(ctx context.Context, userID string, app *types.ExtractedApplication, s *types.ScanSummary) error {
	now := r.now()
	rec := &types.ApplicationRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Company:     app.Company,
		Role:        app.Role,
		Platform:    app.Platform,
		Location:    app.Location,
		Notes:       app.Notes,
		AppliedDate: r.eventDate(app, now),
	}
	rec.AppendStatus(app.Status, now, types.SourceGmailScan)
	switch app.EmailType {
	case types.EmailTypeRejected:
		rec.ResponseDate = rec.AppliedDate
	case types.EmailTypeInterview, types.EmailTypeAssessment:
		rec.InterviewDate = rec.AppliedDate
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		return &StoreError{Op: "insert", Company: app.Company, Cause: err}
	}
	s.Imported++
	s.Applications = append(s.Applications, types.AffectedApplication{
		ExtractedApplication: *app,
		ID:                   rec.ID,
		Action:               types.ActionNew,
	})
	return nil
}

// eventDate is the email's date, or today when the email carried none.
func (r *Reconciler) eventDate(app *types.ExtractedApplication, now time.Time) string {
	if app.AppliedDate != "" {
		return app.AppliedDate
	}
	return now.Format(types.DateLayout)
}

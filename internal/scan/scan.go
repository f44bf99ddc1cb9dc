// Package scan runs a full scan for one user: fetch every connected
// mailbox with bounded concurrency, parse, deduplicate, reconcile, and
// record the outcome as the user's scan task.
package scan

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobpulse/internal/engine"
	"github.com/jonathan/jobpulse/internal/logging"
	"github.com/jonathan/jobpulse/internal/metrics"
	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

// FetchOptions narrows what a Source returns.
type FetchOptions struct {
	// Since skips messages received before this time when non-zero.
	Since time.Time
	// MaxResults caps the messages returned when positive.
	MaxResults int
}

// Source is one connected mailbox.
type Source interface {
	Name() string
	Fetch(ctx context.Context, opts FetchOptions) ([]types.RawEmail, error)
}

// TaskStore persists the latest scan task per user.
type TaskStore interface {
	SaveScanTask(ctx context.Context, task *types.ScanTask) error
	LatestScanTask(ctx context.Context, userID string) (*types.ScanTask, error)
}

// AccountError is a failed fetch for one mailbox. It never aborts a scan.
type AccountError struct {
	Account string
	Cause   error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("error scanning %s: %v", e.Account, e.Cause)
}

func (e *AccountError) Unwrap() error {
	return e.Cause
}

// Options tunes a Scanner.
type Options struct {
	// Concurrency bounds simultaneous fetches. Defaults to 4.
	Concurrency int
	// MaxResults stops new fetches once this many records were extracted,
	// and caps the merged batch. Zero means no limit.
	MaxResults int
	// Since is passed to every Source.
	Since time.Time
}

// Scanner wires sources, the parsing engine and the reconciler.
type Scanner struct {
	engine     *engine.Engine
	reconciler *reconcile.Reconciler
	tasks      TaskStore
	logger     *zap.Logger
	opts       Options
	now        func() time.Time
}

// New creates a Scanner. tasks may be nil to skip task bookkeeping.
func New(e *engine.Engine, r *reconcile.Reconciler, tasks TaskStore, logger *zap.Logger, opts Options) *Scanner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Scanner{
		engine:     e,
		reconciler: r,
		tasks:      tasks,
		logger:     logging.OrNop(logger),
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type accountResult struct {
	apps []types.ExtractedApplication
	err  error
}

// Run scans every source for userID and reconciles the merged result.
// Account failures are reported in the summary's Errors; only context
// cancellation and store failures are returned as errors.
func (s *Scanner) Run(ctx context.Context, userID string, sources []Source) (*types.ScanSummary, error) {
	start := s.now()
	task := &types.ScanTask{UserID: userID, Status: types.ScanScanning, StartedAt: start}
	s.saveTask(ctx, task)

	results := s.fetchAll(ctx, sources)
	if err := ctx.Err(); err != nil {
		s.fail(task, err)
		return nil, err
	}

	var batch []types.ExtractedApplication
	var accountErrs []string
	dedup := engine.NewDeduper()
	for _, res := range results {
		if res.err != nil {
			accountErrs = append(accountErrs, res.err.Error())
			continue
		}
		for i := range res.apps {
			if s.opts.MaxResults > 0 && len(batch) >= s.opts.MaxResults {
				break
			}
			if dedup.Add(&res.apps[i]) {
				batch = append(batch, res.apps[i])
			}
		}
	}

	summary, err := s.reconciler.Reconcile(ctx, userID, batch)
	if err != nil {
		s.fail(task, err)
		return summary, err
	}
	summary.Errors = accountErrs

	finished := s.now()
	task.Status = types.ScanDone
	task.Result = summary
	task.FinishedAt = &finished
	s.saveTask(ctx, task)
	metrics.RecordScanDuration(string(types.ScanDone), finished.Sub(start))

	s.logger.Info("scan complete",
		zap.String("user_id", userID),
		zap.Int("accounts", len(sources)),
		zap.Int("failed_accounts", len(accountErrs)),
		zap.Int("found", summary.Found),
		zap.Int("imported", summary.Imported),
		zap.Int("updated", summary.Updated),
	)
	return summary, nil
}

// fetchAll fetches and parses every source. Results keep source order.
func (s *Scanner) fetchAll(ctx context.Context, sources []Source) []accountResult {
	results := make([]accountResult, len(sources))

	// stop is cancelled once enough records were extracted; fetches that
	// already started run to completion on ctx.
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()
	var extracted atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, src := range sources {
		if stopCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if stopCtx.Err() != nil {
				return nil
			}
			emails, err := src.Fetch(ctx, FetchOptions{Since: s.opts.Since, MaxResults: s.opts.MaxResults})
			if err != nil {
				metrics.IncrementAccountFetchError(src.Name())
				s.logger.Warn("account fetch failed", zap.String("account", src.Name()), zap.Error(err))
				results[i].err = &AccountError{Account: src.Name(), Cause: err}
				return nil
			}
			apps := s.engine.ParseBatch(emails, nil)
			results[i].apps = apps
			s.logger.Debug("account fetched",
				zap.String("account", src.Name()),
				zap.Int("emails", len(emails)),
				zap.Int("applications", len(apps)),
			)
			if s.opts.MaxResults > 0 && extracted.Add(int64(len(apps))) >= int64(s.opts.MaxResults) {
				stop()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scanner) fail(task *types.ScanTask, err error) {
	finished := s.now()
	task.Status = types.ScanError
	task.Error = err.Error()
	task.FinishedAt = &finished
	// The scan context may already be gone; the failure still has to land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.saveTask(ctx, task)
	metrics.RecordScanDuration(string(types.ScanError), finished.Sub(task.StartedAt))
	s.logger.Error("scan failed", zap.String("user_id", task.UserID), zap.Error(err))
}

func (s *Scanner) saveTask(ctx context.Context, task *types.ScanTask) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.SaveScanTask(ctx, task); err != nil {
		s.logger.Warn("failed to save scan task", zap.String("user_id", task.UserID), zap.Error(err))
	}
}

// Status returns the user's latest scan task, or an idle one when the user
// has never scanned.
func (s *Scanner) Status(ctx context.Context, userID string) (*types.ScanTask, error) {
	if s.tasks == nil {
		return &types.ScanTask{UserID: userID, Status: types.ScanIdle}, nil
	}
	task, err := s.tasks.LatestScanTask(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan status: %w", err)
	}
	if task == nil {
		return &types.ScanTask{UserID: userID, Status: types.ScanIdle}, nil
	}
	return task, nil
}

// Watch runs a scan immediately and then every interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (s *Scanner) Watch(ctx context.Context, userID string, sources []Source, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Run(ctx, userID, sources); err != nil && ctx.Err() == nil {
			s.logger.Warn("scheduled scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

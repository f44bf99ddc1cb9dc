package engine

import (
	"go.uber.org/zap"

	"github.com/jonathan/jobpulse/internal/metrics"
	"github.com/jonathan/jobpulse/internal/types"
)

// Deduper drops repeated applications within one scan run. Two records are
// the same when their Key matches. A Deduper is not safe for concurrent use.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Add reports whether app is the first record with its key.
func (d *Deduper) Add(app *types.ExtractedApplication) bool {
	key := app.Key()
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen.
func (d *Deduper) Len() int {
	return len(d.seen)
}

// ParseBatch parses emails in order and returns the first record for each
// dedup key. dedup may be shared across calls to extend the run; nil starts
// a fresh one.
func (e *Engine) ParseBatch(emails []types.RawEmail, dedup *Deduper) []types.ExtractedApplication {
	if dedup == nil {
		dedup = NewDeduper()
	}
	var out []types.ExtractedApplication
	for _, email := range emails {
		app, ok := e.Parse(email)
		if !ok {
			continue
		}
		if !dedup.Add(app) {
			metrics.IncrementEmailProcessed(metrics.OutcomeDuplicate)
			e.logger.Debug("duplicate application dropped", zap.String("key", app.Key()))
			continue
		}
		out = append(out, *app)
	}
	return out
}

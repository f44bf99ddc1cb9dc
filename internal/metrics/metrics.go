// Package metrics exposes the Prometheus collectors for parsing, scanning
// and reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Email outcomes.
const (
	OutcomeRejected  = "reject_pattern"
	OutcomeNoMatch   = "no_match"
	OutcomeNoFields  = "no_fields"
	OutcomeExtracted = "extracted"
	OutcomeDuplicate = "duplicate"
)

var (
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobpulse_emails_processed_total",
			Help: "Total number of emails run through the parser, by outcome",
		},
		[]string{"outcome"},
	)

	EmailsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobpulse_emails_classified_total",
			Help: "Total number of emails that produced a record, by email type",
		},
		[]string{"email_type"},
	)

	ExtractionTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobpulse_extraction_tier_total",
			Help: "Which extraction tier produced each field",
		},
		[]string{"field", "tier"},
	)

	ReconcileActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobpulse_reconcile_actions_total",
			Help: "Reconciliation results, by action",
		},
		[]string{"action"}, // imported, updated, skipped, invalid
	)

	AccountFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobpulse_account_fetch_errors_total",
			Help: "Total number of failed mailbox fetches",
		},
		[]string{"account"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobpulse_scan_duration_seconds",
			Help:    "Duration of a full scan in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"status"},
	)

	RulesReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobpulse_rules_reloads_total",
			Help: "Total number of rule base reloads",
		},
	)
)

// IncrementEmailProcessed counts one parsed email.
func IncrementEmailProcessed(outcome string) {
	EmailsProcessed.WithLabelValues(outcome).Inc()
}

// IncrementClassified counts one emitted record.
func IncrementClassified(emailType string) {
	EmailsClassified.WithLabelValues(emailType).Inc()
}

// RecordExtractionTier counts the tier a field came from. Empty tiers are
// not recorded.
func RecordExtractionTier(field, tier string) {
	if tier == "" {
		return
	}
	ExtractionTier.WithLabelValues(field, tier).Inc()
}

// AddReconcileActions adds n to the counter for action.
func AddReconcileActions(action string, n int) {
	if n <= 0 {
		return
	}
	ReconcileActions.WithLabelValues(action).Add(float64(n))
}

// IncrementAccountFetchError counts one failed fetch.
func IncrementAccountFetchError(account string) {
	AccountFetchErrors.WithLabelValues(account).Inc()
}

// RecordScanDuration observes a finished scan.
func RecordScanDuration(status string, d time.Duration) {
	ScanDuration.WithLabelValues(status).Observe(d.Seconds())
}

// IncrementRulesReload counts one successful reload.
func IncrementRulesReload() {
	RulesReloads.Inc()
}

package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobpulse/internal/classify"
	"github.com/jonathan/jobpulse/internal/engine"
	"github.com/jonathan/jobpulse/internal/extract"
	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

func TestPrintTrace_Extracted(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	email := types.RawEmail{Sender: "jobs-noreply@linkedin.com", Subject: "Your application was sent to Acme"}
	app := &types.ExtractedApplication{
		Company:   "Acme",
		Role:      "Backend Engineer",
		Platform:  "LinkedIn",
		Status:    types.StatusApplied,
		EmailType: types.EmailTypeApplied,
		Location:  "Berlin",
	}
	trace := engine.Trace{
		JobBoard: "LinkedIn",
		Classification: classify.Result{
			Category: types.EmailTypeApplied,
			Matched:  true,
			Reason:   classify.ReasonKeyword,
			Signals:  []types.EmailType{types.EmailTypeApplied, types.EmailTypeInterview},
		},
		Fields: extract.Fields{Company: "Acme", CompanyTier: extract.TierPlatformSubject},
	}

	p.PrintTrace(email, app, trace)
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED APPLICATION")
	assert.Contains(t, output, "applied (keyword)")
	assert.Contains(t, output, "applied, interview")
	assert.Contains(t, output, "[platform_subject]")
	assert.Contains(t, output, "Backend Engineer")
	assert.Contains(t, output, "Berlin")
}

func TestPrintTrace_Dropped(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	trace := engine.Trace{
		Classification: classify.Result{Reason: classify.ReasonNoMatch},
		Dropped:        engine.DropNoMatch,
	}

	p.PrintTrace(types.RawEmail{Sender: "friend@example.com", Subject: "Lunch?"}, nil, trace)
	output := buf.String()

	assert.Contains(t, output, "NOT A JOB APPLICATION")
	assert.Contains(t, output, "none (no_match)")
	assert.Contains(t, output, engine.DropNoMatch)
}

func TestPrintScanSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	summary := &types.ScanSummary{
		Imported: 1,
		Updated:  1,
		Found:    2,
		Applications: []types.AffectedApplication{
			{
				ExtractedApplication: types.ExtractedApplication{Company: "Globex", Role: "SRE", Status: types.StatusApplied},
				Action:               types.ActionNew,
			},
			{
				ExtractedApplication: types.ExtractedApplication{Company: "Acme", Status: types.StatusRejected},
				Action:               types.ActionUpdated,
				OldStatus:            types.StatusApplied,
				NewStatus:            types.StatusRejected,
			},
		},
		Errors: []string{"error scanning work: timeout"},
	}

	p.PrintScanSummary(summary)
	output := buf.String()

	assert.Contains(t, output, "SCAN SUMMARY")
	assert.Contains(t, output, "Imported: 1")
	assert.Contains(t, output, "+ Globex, SRE (Applied)")
	assert.Contains(t, output, "~ Acme: Applied → Rejected")
	assert.Contains(t, output, "error scanning work")
}

func TestPrintScanSummary_Truncated(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	summary := &types.ScanSummary{}
	for i := 0; i < maxItemsToShow+3; i++ {
		summary.Applications = append(summary.Applications, types.AffectedApplication{
			ExtractedApplication: types.ExtractedApplication{Company: "Acme", Role: "Engineer"},
			Action:               types.ActionNew,
		})
	}

	p.PrintScanSummary(summary)

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintScanSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScanSummary(nil)
	p.PrintScanTask(nil)

	assert.Empty(t, buf.String())
}

func TestPrintScanTask(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	p.PrintScanTask(&types.ScanTask{
		Status:     types.ScanDone,
		StartedAt:  started,
		FinishedAt: &finished,
		Result:     &types.ScanSummary{Found: 4, Imported: 3, Updated: 1},
	})
	output := buf.String()

	assert.Contains(t, output, "LAST SCAN")
	assert.Contains(t, output, "done")
	assert.Contains(t, output, "2026-03-01 09:01:00")
	assert.Contains(t, output, "4 found, 3 new, 1 updated, 0 skipped")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	stats := reconcile.ComputeStats([]types.ApplicationRecord{
		{Status: types.StatusApplied, Platform: "LinkedIn"},
		{Status: types.StatusRejected, Platform: "LinkedIn"},
		{Status: types.StatusInterviewScheduled, Platform: "Greenhouse"},
	})

	p.PrintStats(stats)
	output := buf.String()

	assert.Contains(t, output, "Applications:  3")
	assert.Contains(t, output, "66.7%")
	assert.Contains(t, output, "Interview Scheduled")
	assert.Less(t, strings.Index(output, "LinkedIn"), strings.Index(output, "Greenhouse"))
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

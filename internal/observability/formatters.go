// Package observability provides formatted output for the CLI's human-readable mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/jobpulse/internal/engine"
	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintTrace outputs how one email was classified and what was extracted.
func (p *Printer) PrintTrace(email types.RawEmail, app *types.ExtractedApplication, trace engine.Trace) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("From:      %s\n", email.Sender))
	sb.WriteString(fmt.Sprintf("Subject:   %s\n", email.Subject))
	if trace.JobBoard != "" {
		sb.WriteString(fmt.Sprintf("Job board: %s\n", trace.JobBoard))
	}
	sb.WriteString("\n")

	c := trace.Classification
	if c.Matched {
		sb.WriteString(fmt.Sprintf("Class:     %s (%s)\n", c.Category, c.Reason))
	} else {
		sb.WriteString(fmt.Sprintf("Class:     none (%s)\n", c.Reason))
	}
	if len(c.Signals) > 1 {
		signals := make([]string, len(c.Signals))
		for i, s := range c.Signals {
			signals[i] = string(s)
		}
		sb.WriteString(fmt.Sprintf("Signals:   %s\n", strings.Join(signals, ", ")))
	}

	f := trace.Fields
	if f.Company != "" || f.Role != "" || f.Location != "" {
		sb.WriteString("\nRaw fields:\n")
		if f.Company != "" {
			sb.WriteString(fmt.Sprintf("  company  %s [%s]\n", f.Company, f.CompanyTier))
		}
		if f.Role != "" {
			sb.WriteString(fmt.Sprintf("  role     %s [%s]\n", f.Role, f.RoleTier))
		}
		if f.Location != "" {
			sb.WriteString(fmt.Sprintf("  location %s\n", f.Location))
		}
	}

	if app == nil {
		sb.WriteString(fmt.Sprintf("\nDropped:   %s", trace.Dropped))
		p.printBox("NOT A JOB APPLICATION", sb.String())
		return
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Company:   %s\n", app.Company))
	sb.WriteString(fmt.Sprintf("Role:      %s\n", app.Role))
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", app.Platform))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", app.Status))
	if app.Location != "" {
		sb.WriteString(fmt.Sprintf("Location:  %s\n", app.Location))
	}
	if app.AppliedDate != "" {
		sb.WriteString(fmt.Sprintf("Date:      %s\n", app.AppliedDate))
	}

	p.printBox("EXTRACTED APPLICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScanSummary outputs the counters and affected records of a scan.
func (p *Printer) PrintScanSummary(summary *types.ScanSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found:    %d\n", summary.Found))
	sb.WriteString(fmt.Sprintf("Imported: %d\n", summary.Imported))
	sb.WriteString(fmt.Sprintf("Updated:  %d\n", summary.Updated))
	sb.WriteString(fmt.Sprintf("Skipped:  %d\n", summary.Skipped))

	if len(summary.Applications) > 0 {
		sb.WriteString("\n")
		count := min(len(summary.Applications), maxItemsToShow)
		for i := 0; i < count; i++ {
			a := summary.Applications[i]
			switch a.Action {
			case types.ActionUpdated:
				sb.WriteString(fmt.Sprintf("~ %s: %s → %s\n", a.Company, a.OldStatus, a.NewStatus))
			default:
				sb.WriteString(fmt.Sprintf("+ %s, %s (%s)\n", a.Company, a.Role, a.Status))
			}
		}
		if len(summary.Applications) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(summary.Applications)-maxItemsToShow))
		}
	}

	if len(summary.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, e := range summary.Errors {
			sb.WriteString(fmt.Sprintf("⚠ %s\n", e))
		}
	}

	p.printBox("SCAN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScanTask outputs the state of the user's latest scan.
func (p *Printer) PrintScanTask(task *types.ScanTask) {
	if task == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", task.Status))
	if !task.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:  %s\n", task.StartedAt.Format("2006-01-02 15:04:05")))
	}
	if task.FinishedAt != nil {
		sb.WriteString(fmt.Sprintf("Finished: %s\n", task.FinishedAt.Format("2006-01-02 15:04:05")))
	}
	if task.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", task.Error))
	}
	if r := task.Result; r != nil {
		sb.WriteString(fmt.Sprintf("Result:   %d found, %d new, %d updated, %d skipped\n",
			r.Found, r.Imported, r.Updated, r.Skipped))
	}

	p.printBox("LAST SCAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs application totals, per-status counts and the response rate.
func (p *Printer) PrintStats(stats reconcile.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Applications:  %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("Response rate: %.1f%%\n", stats.ResponseRate))

	if len(stats.ByStatus) > 0 {
		sb.WriteString("\nBy status:\n")
		for _, status := range types.AllStatuses() {
			if n := stats.ByStatus[status]; n > 0 {
				sb.WriteString(fmt.Sprintf("  %-20s %d\n", status, n))
			}
		}
	}

	if len(stats.ByPlatform) > 0 {
		sb.WriteString("\nBy platform:\n")
		platforms := make([]string, 0, len(stats.ByPlatform))
		for name := range stats.ByPlatform {
			platforms = append(platforms, name)
		}
		sort.Slice(platforms, func(i, j int) bool {
			a, b := stats.ByPlatform[platforms[i]], stats.ByPlatform[platforms[j]]
			if a != b {
				return a > b
			}
			return platforms[i] < platforms[j]
		})
		if len(platforms) > maxItemsToShow {
			platforms = platforms[:maxItemsToShow]
		}
		for _, name := range platforms {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", name, stats.ByPlatform[name]))
		}
	}

	p.printBox("APPLICATION STATS", strings.TrimSuffix(sb.String(), "\n"))
}

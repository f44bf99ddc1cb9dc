package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/observability"
	"github.com/jonathan/jobpulse/internal/scan"
	"github.com/jonathan/jobpulse/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan mailboxes once and reconcile the results into the store",
	Long: `Scan every mailbox directory, classify and extract each message, and
reconcile the results into the user's application records.

A failing mailbox does not fail the scan; its error is listed in the summary.`,
	RunE: runScan,
}

var (
	scanMailboxes   []string
	scanSince       string
	scanMaxResults  int
	scanConcurrency int
	scanJSON        bool
)

// addScanFlags registers the flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&scanMailboxes, "mailbox", nil, "Directory of .eml files; repeat for multiple accounts")
	cmd.Flags().StringVar(&scanSince, "since", "", "Skip messages received before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&scanMaxResults, "max", 0, "Stop once this many applications were extracted")
	cmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "Mailboxes fetched in parallel")
}

func init() {
	addScanFlags(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(scanCmd)
}

func scanOptions() (scan.Options, error) {
	opts := scan.Options{Concurrency: scanConcurrency, MaxResults: scanMaxResults}
	if scanSince != "" {
		since, err := time.Parse(types.DateLayout, scanSince)
		if err != nil {
			return opts, fmt.Errorf("invalid --since %q: expected YYYY-MM-DD", scanSince)
		}
		opts.Since = since
	}
	return opts, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	opts, err := scanOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newScanEnv(ctx, scanMailboxes, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	summary, err := env.scanner.Run(ctx, env.cfg.UserID, env.sources)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		return writeJSON(cmd.OutOrStdout(), summary)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintScanSummary(summary)
	return nil
}

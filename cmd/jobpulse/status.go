package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/observability"
	"github.com/jonathan/jobpulse/internal/reconcile"
	"github.com/jonathan/jobpulse/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest scan task and application statistics",
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Task  *types.ScanTask `json:"task"`
	Stats reconcile.Stats `json:"stats"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	task, err := store.LatestScanTask(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load scan task: %w", err)
	}
	if task == nil {
		task = &types.ScanTask{UserID: cfg.UserID, Status: types.ScanIdle}
	}
	records, err := store.ListApplications(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	report := statusReport{Task: task, Stats: reconcile.ComputeStats(records)}

	if statusJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintScanTask(report.Task)
	printer.PrintStats(report.Stats)
	return nil
}

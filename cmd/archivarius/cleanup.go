// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medistock/archivarius/internal/backup"
)

var (
	cleanupDryRun bool

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Apply the retention policy and delete expired backups",
		Long: `Cleanup deletes backups that fall outside every retention window.

Backups are kept when they are newer than the daily window, sit on a weekly
or monthly calendar anchor, are still in progress, or are the baseline of a
retained incremental backup. --dry-run reports the keep/delete decision with
per-backup reasons without touching anything.`,
		Args: cobra.NoArgs,
		RunE: runApp(runCleanup),
	}
)

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "report what would be deleted without deleting")

	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(ctx context.Context, a *app, _ []string) error {
	report, err := a.engine.Cleanup(ctx, cleanupDryRun)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if jsonOutput() {
		if err := writeJSON(report); err != nil {
			return err
		}
	} else {
		printCleanupText(report)
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("cleanup completed with %d failure(s)", len(report.Failures))
	}
	return nil
}

func printCleanupText(report *backup.CleanupReport) {
	if report.DryRun {
		fmt.Println("Retention preview (dry run)")
	} else {
		fmt.Println("Retention sweep")
	}

	fmt.Printf("Keeping %d backup(s):\n", len(report.WouldKeep))
	for _, item := range report.WouldKeep {
		fmt.Printf("  %s  %-12s %s  %s\n",
			item.ID, item.Type, formatTime(item.CreatedAt), strings.Join(item.Reasons, "; "))
	}

	if len(report.WouldDelete) == 0 {
		fmt.Println("Nothing to delete")
		return
	}

	verb := "Deleting"
	if report.DryRun {
		verb = "Would delete"
	}
	fmt.Printf("%s %d backup(s):\n", verb, len(report.WouldDelete))
	for _, item := range report.WouldDelete {
		fmt.Printf("  %s  %-12s %s  %s\n",
			item.ID, item.Type, formatTime(item.CreatedAt), formatBytes(item.FileSize))
	}

	if !report.DryRun {
		fmt.Printf("Deleted %d backup(s), reclaimed %s\n",
			report.DeletedCount, formatBytes(report.ReclaimedBytes))
		for _, f := range report.Failures {
			fmt.Printf("  failed on %s (%s): %s\n", f.BackupID, f.Step, f.Error)
		}
	}
}

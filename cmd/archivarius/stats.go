// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medistock/archivarius/internal/backup"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate backup statistics",
	Args:  cobra.NoArgs,
	RunE:  runApp(runStats),
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.engine.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if jsonOutput() {
		return writeJSON(stats)
	}

	fmt.Printf("Backups:        %d", stats.TotalCount)
	if stats.TotalCount > 0 {
		fmt.Printf("  (full: %d, incremental: %d)",
			stats.CountByType[backup.TypeFull], stats.CountByType[backup.TypeIncremental])
	}
	fmt.Println()

	if stats.TotalCount == 0 {
		return nil
	}

	fmt.Printf("By status:      completed: %d, failed: %d, corrupted: %d, pending: %d\n",
		stats.CountByStatus[backup.StatusCompleted],
		stats.CountByStatus[backup.StatusFailed],
		stats.CountByStatus[backup.StatusCorrupted],
		stats.CountByStatus[backup.StatusPending])
	fmt.Printf("Total size:     %s\n", formatBytes(stats.TotalSizeBytes))
	fmt.Printf("Average size:   %s\n", formatBytes(stats.AverageSizeBytes))
	fmt.Printf("Avg duration:   %s\n", formatDuration(stats.AverageDuration))
	fmt.Printf("Success rate:   %.1f%%\n", stats.SuccessRate)
	if stats.OldestBackup != nil {
		fmt.Printf("Oldest:         %s\n", formatTime(*stats.OldestBackup))
	}
	if stats.NewestBackup != nil {
		fmt.Printf("Newest:         %s\n", formatTime(*stats.NewestBackup))
	}
	if last := stats.LastBackup; last != nil {
		fmt.Printf("Last backup:    %s (%s, %s)\n", last.ID, last.Type, last.Status)
	}
	fmt.Printf("Retention:      %dd daily, %dw weekly anchors, %dmo monthly anchors\n",
		stats.RetentionPolicy.KeepDailyDays,
		stats.RetentionPolicy.KeepWeeklyWeeks,
		stats.RetentionPolicy.KeepMonthlyMonths)
	return nil
}

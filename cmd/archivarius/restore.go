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

var (
	restoreDryRun    bool
	restoreForce     bool
	restoreTable     string
	restorePreBackup bool

	restoreCmd = &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore a backup into a side table",
		Long: `Restore writes a backup's records into a restore table, never into the
live inventory table. Restoring an incremental backup replays its baseline
first and then applies the incremental changes, including deletes.

Every restore runs the full integrity test first and refuses a failing
backup; --force skips that protection when recovering from a damaged
catalog is worth the risk. --dry-run resolves the chain and verifies it
without writing anything. --pre-backup captures a full backup of the
current live records first, so the pre-restore state stays comparable.`,
		Args: cobra.ExactArgs(1),
		RunE: runApp(runRestore),
	}
)

func init() {
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "verify and plan only, write nothing")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "skip the pre-restore integrity test")
	restoreCmd.Flags().StringVar(&restoreTable, "table", "", "destination table (default "+backup.RestoreTableDefault+")")
	restoreCmd.Flags().BoolVar(&restorePreBackup, "pre-backup", false, "take a full backup of the live records before restoring")

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(ctx context.Context, a *app, args []string) error {
	if restorePreBackup && !restoreDryRun {
		pre, err := a.engine.CreateBackup(ctx, backup.TypeFull, backup.TriggerPreRestore, "pre-restore state of "+args[0])
		if err != nil {
			return fmt.Errorf("pre-restore backup failed: %w", err)
		}
		if !jsonOutput() {
			fmt.Printf("Captured pre-restore backup %s\n", pre.ID)
		}
	}

	result, err := a.engine.Restore(ctx, args[0], backup.RestoreOptions{
		DryRun:      restoreDryRun,
		Force:       restoreForce,
		TargetTable: restoreTable,
	})
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if jsonOutput() {
		if err := writeJSON(result); err != nil {
			return err
		}
	} else {
		printRestoreText(result)
	}

	if !result.Success {
		return fmt.Errorf("restore of %s failed: %s", result.BackupID, result.Error)
	}
	return nil
}

func printRestoreText(result *backup.RestoreResult) {
	if result.DryRun {
		fmt.Printf("Restore plan for %s (dry run)\n", result.BackupID)
	} else {
		fmt.Printf("Restored %s\n", result.BackupID)
	}
	fmt.Printf("  target table:  %s\n", result.TargetTable)
	fmt.Printf("  chain length:  %d\n", result.ChainLength)
	fmt.Printf("  records:       %d\n", result.RecordsRestored)
	if result.DeletesApplied > 0 {
		fmt.Printf("  deletes:       %d\n", result.DeletesApplied)
	}
	fmt.Printf("  duration:      %s\n", formatDuration(result.Duration))
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if result.Error != "" {
		fmt.Printf("  error: %s\n", result.Error)
	}
}

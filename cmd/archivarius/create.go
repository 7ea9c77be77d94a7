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
	createIncremental bool
	createScheduled   bool
	createFormat      string
	createNotes       string

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a backup of the inventory database",
		Long: `Create captures the inventory records into a new backup artifact.

By default every backup is a full snapshot. With --incremental only records
created or updated since the newest completed full backup are captured; if
no usable baseline exists the run falls back to a full backup instead of
failing, so cron lines may always pass --incremental.`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			// The format override is applied to the loaded configuration
			// before newApp hands it to the engine.
			if createFormat != "" {
				if _, err := backup.ParseFormat(createFormat); err != nil {
					return &usageError{err}
				}
				appCfg.Backup.Format = createFormat
			}
			return nil
		},
		RunE: runApp(runCreate),
	}
)

func init() {
	createCmd.Flags().BoolVar(&createIncremental, "incremental", false, "capture only changes since the last completed full backup")
	createCmd.Flags().BoolVar(&createScheduled, "scheduled", false, "mark the backup as cron-triggered in the catalog")
	createCmd.Flags().StringVar(&createFormat, "format", "", "artifact format: json, csv, or sql (default from config)")
	createCmd.Flags().StringVar(&createNotes, "notes", "", "free-form note stored on the catalog row")

	rootCmd.AddCommand(createCmd)
}

func runCreate(ctx context.Context, a *app, _ []string) error {
	backupType := backup.TypeFull
	if createIncremental {
		backupType = backup.TypeIncremental
	}
	trigger := backup.TriggerManual
	if createScheduled {
		trigger = backup.TriggerScheduled
	}

	b, err := a.engine.CreateBackup(ctx, backupType, trigger, createNotes)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if jsonOutput() {
		return writeJSON(b)
	}

	fmt.Printf("Created backup %s\n", b.ID)
	fmt.Printf("  type:      %s\n", b.Type)
	fmt.Printf("  status:    %s\n", b.Status)
	fmt.Printf("  format:    %s\n", b.Format)
	fmt.Printf("  artifact:  %s\n", b.FilePath)
	fmt.Printf("  size:      %s\n", formatBytes(b.FileSize))
	fmt.Printf("  records:   %d\n", b.RecordCount)
	fmt.Printf("  checksum:  %s\n", b.Checksum)
	fmt.Printf("  duration:  %s\n", formatDuration(b.Duration))
	if b.BaselineID != "" {
		fmt.Printf("  baseline:  %s\n", b.BaselineID)
	}
	if createIncremental && b.Type == backup.TypeFull {
		fmt.Println("note: no usable baseline existed, a full backup was captured instead")
	}
	return nil
}

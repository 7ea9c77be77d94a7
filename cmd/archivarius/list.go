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
	listType   string
	listStatus string
	listLimit  int
	listOffset int
	listAsc    bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List backups in the catalog",
		Long: `List shows catalog rows, newest first.

Filters narrow by type (full, incremental) and status (pending, completed,
failed, corrupted). --limit and --offset page through large catalogs.`,
		Args: cobra.NoArgs,
		RunE: runApp(runList),
	}
)

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "filter by backup type: full or incremental")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status: pending, completed, failed, or corrupted")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum rows to return (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "rows to skip")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "oldest first instead of newest first")

	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, a *app, _ []string) error {
	opts := backup.BackupListOptions{
		Limit:    listLimit,
		Offset:   listOffset,
		SortDesc: !listAsc,
	}
	if listType != "" {
		t := backup.BackupType(listType)
		opts.Type = &t
	}
	if listStatus != "" {
		s := backup.BackupStatus(listStatus)
		opts.Status = &s
	}

	backups, err := a.engine.ListBackups(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if jsonOutput() {
		return writeJSON(backups)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	fmt.Printf("%-36s  %-12s  %-10s  %-19s  %10s  %8s\n",
		"ID", "TYPE", "STATUS", "CREATED", "SIZE", "RECORDS")
	for _, b := range backups {
		fmt.Printf("%-36s  %-12s  %-10s  %-19s  %10s  %8d\n",
			b.ID, b.Type, b.Status, formatTime(b.CreatedAt), formatBytes(b.FileSize), b.RecordCount)
	}
	fmt.Printf("%d backup(s)\n", len(backups))
	return nil
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteForce bool

	deleteCmd = &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a single backup",
		Long: `Delete removes one backup's artifact, metadata sidecar, and catalog row.

A completed full backup that is still the baseline of an incremental backup
is protected; --force overrides the protection and strands the dependent
incrementals.`,
		Args: cobra.ExactArgs(1),
		RunE: runApp(runDelete),
	}
)

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "delete even if incremental backups depend on this baseline")

	rootCmd.AddCommand(deleteCmd)
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id := args[0]
	if err := a.engine.DeleteBackup(ctx, id, deleteForce); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	if jsonOutput() {
		return writeJSON(map[string]string{"deleted": id})
	}
	fmt.Printf("Deleted backup %s\n", id)
	return nil
}

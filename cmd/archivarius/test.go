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

var testCmd = &cobra.Command{
	Use:   "test <backup-id>",
	Short: "Run the six-stage integrity test against a backup",
	Long: `Test proves a backup is actually restorable, not merely present.

The stages run in pipeline order: artifact exists, checksum matches,
payload decrypts, payload decompresses, payload parses, and a restore
simulation succeeds. A backup that fails any stage is marked corrupted in
the catalog and the command exits 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runApp(runTest),
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(ctx context.Context, a *app, args []string) error {
	result, err := a.engine.TestBackup(ctx, args[0])
	if err != nil {
		return fmt.Errorf("integrity test did not run: %w", err)
	}

	if jsonOutput() {
		if err := writeJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("Integrity test for %s\n", result.BackupID)
		fmt.Printf("  exists:          %s\n", checkGlyph(result.Exists))
		fmt.Printf("  checksum:        %s\n", checkGlyph(result.ChecksumValid))
		fmt.Printf("  decryptable:     %s\n", checkGlyph(result.Decryptable))
		fmt.Printf("  decompressible:  %s\n", checkGlyph(result.Decompressible))
		fmt.Printf("  parseable:       %s\n", checkGlyph(result.Parseable))
		fmt.Printf("  restorable:      %s\n", checkGlyph(result.Restorable))
	}

	if !result.Passed {
		return fmt.Errorf("backup %s failed integrity test at stage %s", result.BackupID, result.FailedStage)
	}
	if !jsonOutput() {
		fmt.Println("All stages passed")
	}
	return nil
}

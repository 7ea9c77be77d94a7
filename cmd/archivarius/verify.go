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

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the environment can take and keep backups",
	Long: `Verify probes the environment the engine depends on: the backup
directory is writable, staging and publish share a filesystem, the catalog
answers, scratch space works, the encryption key is not the built-in
default, and the sink (when configured) is reachable.

Run it at install time and after storage or configuration changes. Exit
code 1 means at least one check failed.`,
	Args: cobra.NoArgs,
	RunE: runApp(runVerify),
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(ctx context.Context, a *app, _ []string) error {
	report := a.engine.VerifySetup(ctx)

	if jsonOutput() {
		if err := writeJSON(report); err != nil {
			return err
		}
	} else {
		for _, check := range report.Checks {
			fmt.Printf("  %-16s %s", check.Name, checkGlyph(check.OK))
			if check.Detail != "" {
				fmt.Printf("  %s", check.Detail)
			}
			fmt.Println()
		}
	}

	if !report.Healthy {
		return fmt.Errorf("setup verification failed")
	}
	if !jsonOutput() {
		fmt.Println("Setup is healthy")
	}
	return nil
}

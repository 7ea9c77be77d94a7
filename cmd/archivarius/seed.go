// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medistock/archivarius/internal/inventory"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo inventory fixture",
	Long: `Seed upserts a small fixed set of inventory records (items, suppliers,
locations) into the live table. It exists for demos and local testing and
is idempotent; running it against a real inventory is safe but pointless.`,
	Args: cobra.NoArgs,
	RunE: runApp(runSeed),
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context, a *app, _ []string) error {
	n, err := inventory.SeedDemo(ctx, a.store)
	if err != nil {
		return fmt.Errorf("failed to seed demo records: %w", err)
	}

	if jsonOutput() {
		return writeJSON(map[string]int{"seeded": n})
	}
	fmt.Printf("Seeded %d demo record(s)\n", n)
	return nil
}

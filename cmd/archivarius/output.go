// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
output.go - Result Rendering

Commands produce structs; this file turns them into stdout. --output json
marshals the struct as-is (same shapes as the metadata sidecars), --output
text prints a compact fixed-width rendering meant for terminals and cron
mail. Log lines go to stderr via zerolog and never mix with results.
*/

package main

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// jsonOutput reports whether --output json was requested.
func jsonOutput() bool {
	return outputFormat == outputJSON
}

// writeJSON renders v as indented JSON on stdout.
func writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatTime renders a timestamp for text output. UTC, second precision.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// formatDuration trims sub-millisecond noise from durations so text output
// stays readable.
func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Millisecond).String()
}

// checkGlyph renders a pass/fail mark for per-stage text output.
func checkGlyph(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

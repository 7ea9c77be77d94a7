// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"testing"
	"time"
)

// TestFormatBytes verifies unit selection across magnitudes.
func TestFormatBytes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

// TestFormatDuration verifies rounding above and below one second.
func TestFormatDuration(t *testing.T) {
	t.Parallel()

	if got := formatDuration(1537 * time.Millisecond); got != "1.54s" {
		t.Errorf("expected 1.54s, got %q", got)
	}
	if got := formatDuration(1234567 * time.Nanosecond); got != "1ms" {
		t.Errorf("expected 1ms, got %q", got)
	}
}

// TestFormatTime verifies UTC normalization.
func TestFormatTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2026, 8, 25, 14, 30, 0, 0, loc)
	if got := formatTime(in); got != "2026-08-25 12:30:00" {
		t.Errorf("expected UTC rendering, got %q", got)
	}
}

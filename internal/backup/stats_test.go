// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestCalculateBackupStats tests the catalog fold, including the
// completed-only averages
func TestCalculateBackupStats(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 2, 3, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC)

	oldFull := mkBackup("full-00000001", TypeFull, StatusCompleted, t1)
	oldFull.FileSize = 1000
	oldFull.Duration = 2 * time.Second
	failed := mkBackup("full-00000002", TypeFull, StatusFailed, t2)
	failed.FileSize = 200
	failed.Duration = 10 * time.Second // must not pull the average
	newIncr := mkBackup("incr-00000001", TypeIncremental, StatusCompleted, t3)
	newIncr.FileSize = 500
	newIncr.Duration = 1 * time.Second

	stats := calculateBackupStats([]*Backup{oldFull, failed, newIncr}, DefaultRetentionPolicy())

	if stats.TotalCount != 3 {
		t.Errorf("expected total 3, got %d", stats.TotalCount)
	}
	if stats.CountByType[TypeFull] != 2 || stats.CountByType[TypeIncremental] != 1 {
		t.Errorf("unexpected type counts: %v", stats.CountByType)
	}
	if stats.CountByStatus[StatusCompleted] != 2 || stats.CountByStatus[StatusFailed] != 1 {
		t.Errorf("unexpected status counts: %v", stats.CountByStatus)
	}
	if stats.TotalSizeBytes != 1700 {
		t.Errorf("expected 1700 total bytes, got %d", stats.TotalSizeBytes)
	}
	if stats.AverageSizeBytes != 750 {
		t.Errorf("expected average 750 over completed backups, got %d", stats.AverageSizeBytes)
	}
	if stats.AverageDuration != 1500*time.Millisecond {
		t.Errorf("expected average duration 1.5s, got %v", stats.AverageDuration)
	}
	if stats.SuccessRate < 66.6 || stats.SuccessRate > 66.7 {
		t.Errorf("expected success rate ~66.67, got %f", stats.SuccessRate)
	}
	if stats.OldestBackup == nil || !stats.OldestBackup.Equal(t1) {
		t.Errorf("expected oldest %v, got %v", t1, stats.OldestBackup)
	}
	if stats.NewestBackup == nil || !stats.NewestBackup.Equal(t3) {
		t.Errorf("expected newest %v, got %v", t3, stats.NewestBackup)
	}
	if stats.LastBackup == nil || stats.LastBackup.ID != newIncr.ID {
		t.Errorf("expected last backup %s, got %+v", newIncr.ID, stats.LastBackup)
	}
	if stats.RetentionPolicy.KeepDailyDays != 30 {
		t.Errorf("expected the policy on the stats, got %+v", stats.RetentionPolicy)
	}
}

// TestCalculateBackupStatsEmpty tests the zero-catalog fold
func TestCalculateBackupStatsEmpty(t *testing.T) {
	t.Parallel()

	stats := calculateBackupStats(nil, DefaultRetentionPolicy())
	if stats.TotalCount != 0 || stats.SuccessRate != 0 {
		t.Errorf("unexpected stats for an empty catalog: %+v", stats)
	}
	if stats.OldestBackup != nil || stats.NewestBackup != nil || stats.LastBackup != nil {
		t.Error("expected nil range markers for an empty catalog")
	}
}

// TestEngineStats tests the catalog passthrough and its failure path
func TestEngineStats(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalCount != 1 || stats.LastBackup == nil || stats.LastBackup.ID != b.ID {
		t.Errorf("unexpected stats: %+v", stats)
	}

	env.catalog.listErr = errors.New("catalog offline")
	if _, err := eng.Stats(ctx); err == nil {
		t.Error("expected the catalog error to surface")
	}
}

// TestVerifySetupHealthy tests the full probe set on a working environment
func TestVerifySetupHealthy(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)

	report := eng.VerifySetup(context.Background())
	if !report.Healthy {
		t.Fatalf("expected a healthy report, got %+v", report.Checks)
	}

	want := []string{"backup_dir", "staging_rename", "catalog", "scratch_dir", "encryption_key", "sink"}
	if len(report.Checks) != len(want) {
		t.Fatalf("expected %d checks, got %d", len(want), len(report.Checks))
	}
	for i, name := range want {
		if report.Checks[i].Name != name {
			t.Errorf("check %d: expected %s, got %s", i, name, report.Checks[i].Name)
		}
		if !report.Checks[i].OK {
			t.Errorf("check %s unexpectedly failed: %s", name, report.Checks[i].Detail)
		}
	}

	// No sink wired: the check passes but says so
	last := report.Checks[len(report.Checks)-1]
	if !strings.Contains(last.Detail, "no sink configured") {
		t.Errorf("expected the sink detail to note local-only storage, got %q", last.Detail)
	}
}

// TestVerifySetupFlagsDefaultKey tests that encryption without an operator
// key fails the setup check
func TestVerifySetupFlagsDefaultKey(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.newTestConfig()
	cfg.Encryption.Enabled = true
	cfg.Encryption.Key = ""
	eng := env.newTestEngine(t, cfg)

	report := eng.VerifySetup(context.Background())
	if report.Healthy {
		t.Fatal("expected the default key to fail the setup check")
	}

	var found bool
	for _, c := range report.Checks {
		if c.Name == "encryption_key" {
			found = true
			if c.OK {
				t.Error("expected the encryption_key check to fail")
			}
			if !strings.Contains(c.Detail, "default") {
				t.Errorf("expected the detail to warn about the default key, got %q", c.Detail)
			}
		}
	}
	if !found {
		t.Error("expected an encryption_key check")
	}
}

// TestVerifySetupCatalogDown tests that a dead catalog is reported
func TestVerifySetupCatalogDown(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	env.catalog.listErr = errors.New("connection refused")

	report := eng.VerifySetup(context.Background())
	if report.Healthy {
		t.Fatal("expected an unhealthy report")
	}
	for _, c := range report.Checks {
		if c.Name == "catalog" && c.OK {
			t.Error("expected the catalog check to fail")
		}
	}
}

// TestVerifySetupNamesSink tests that a wired sink shows up in the report
func TestVerifySetupNamesSink(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetSink(&captureSink{})

	report := eng.VerifySetup(context.Background())
	for _, c := range report.Checks {
		if c.Name == "sink" && c.Detail != "capture" {
			t.Errorf("expected the sink name in the report, got %q", c.Detail)
		}
	}
}

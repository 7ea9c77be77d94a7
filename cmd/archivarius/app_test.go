// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package main

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/config"
)

// TestEngineConfigMapping verifies the translation from CLI configuration
// to the engine's Config, including the day-to-duration conversion for the
// baseline age limit.
func TestEngineConfigMapping(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Storage: config.StorageConfig{
			BackupDir: "/var/backups/archivarius",
			TempDir:   "/var/backups/archivarius/.staging",
		},
		Backup: config.BackupConfig{
			Format:    "csv",
			CreatedBy: "ops",
		},
		Retention: config.RetentionConfig{
			KeepDailyDays:     7,
			KeepWeeklyWeeks:   4,
			KeepMonthlyMonths: 6,
		},
		Compression: config.CompressionConfig{
			Enabled:   true,
			Algorithm: "zstd",
			Level:     3,
		},
		Encryption: config.EncryptionConfig{
			Enabled: true,
			Key:     "a-real-secret-key-for-mapping-test",
		},
		Incremental: config.IncrementalConfig{
			MaxBaselineAgeDays: 14,
		},
		Testing: config.TestingConfig{
			ScratchDir:        "/tmp/archivarius",
			VerifyAfterCreate: true,
		},
	}

	got := engineConfig(cfg)

	if !got.Enabled {
		t.Error("expected engine to be enabled")
	}
	if got.BackupDir != cfg.Storage.BackupDir {
		t.Errorf("expected backup dir %s, got %s", cfg.Storage.BackupDir, got.BackupDir)
	}
	if got.TempDir != "/var/backups/archivarius/.staging" {
		t.Errorf("expected explicit temp dir, got %s", got.TempDir)
	}
	if got.ScratchDir != "/tmp/archivarius" {
		t.Errorf("expected explicit scratch dir, got %s", got.ScratchDir)
	}
	if got.Format != backup.FormatCSV {
		t.Errorf("expected format csv, got %s", got.Format)
	}
	if got.CreatedBy != "ops" {
		t.Errorf("expected created_by ops, got %s", got.CreatedBy)
	}
	if got.Retention.KeepDailyDays != 7 || got.Retention.KeepWeeklyWeeks != 4 || got.Retention.KeepMonthlyMonths != 6 {
		t.Errorf("retention policy not mapped: %+v", got.Retention)
	}
	if got.Compression.Algorithm != "zstd" || got.Compression.Level != 3 {
		t.Errorf("compression not mapped: %+v", got.Compression)
	}
	if !got.Encryption.Enabled || got.Encryption.Key == "" {
		t.Errorf("encryption not mapped: %+v", got.Encryption)
	}
	if want := 14 * 24 * time.Hour; got.Incremental.MaxBaselineAge != want {
		t.Errorf("expected baseline age %s, got %s", want, got.Incremental.MaxBaselineAge)
	}
	if !got.VerifyAfterCreate {
		t.Error("expected verify-after-create to carry over")
	}
}

// TestEngineConfigZeroBaselineAge verifies that the disabled age check maps
// to a zero duration rather than a bogus window.
func TestEngineConfigZeroBaselineAge(t *testing.T) {
	t.Parallel()

	got := engineConfig(&config.Config{})
	if got.Incremental.MaxBaselineAge != 0 {
		t.Errorf("expected zero baseline age, got %s", got.Incremental.MaxBaselineAge)
	}
}

// TestEngineConfigResolvesDefaultDirs verifies that empty staging and
// scratch paths resolve at the mapping boundary, not inside the engine.
func TestEngineConfigResolvesDefaultDirs(t *testing.T) {
	t.Parallel()

	got := engineConfig(&config.Config{
		Storage: config.StorageConfig{BackupDir: "/data/backups"},
	})
	if got.TempDir != "/data/backups/.staging" {
		t.Errorf("expected staging under the backup dir, got %s", got.TempDir)
	}
	if got.ScratchDir != os.TempDir() {
		t.Errorf("expected the system temp dir, got %s", got.ScratchDir)
	}
}

// TestUsageErrorUnwraps verifies that errors.As finds a usageError through
// fmt.Errorf wrapping, which the exit-code mapping relies on.
func TestUsageErrorUnwraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("unknown flag: --bogus")
	wrapped := fmt.Errorf("parsing failed: %w", &usageError{inner})

	var usage *usageError
	if !errors.As(wrapped, &usage) {
		t.Fatal("expected errors.As to find usageError")
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected errors.Is to reach the inner error")
	}
}

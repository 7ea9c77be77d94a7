// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfigValidation tests configuration validation
func TestConfigValidation(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := &Config{
			Enabled:   true,
			BackupDir: "/var/lib/archivarius/backups",
			Format:    FormatJSON,
			Retention: DefaultRetentionPolicy(),
			Compression: CompressionConfig{
				Enabled:   true,
				Algorithm: AlgorithmGzip,
				Level:     6,
			},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "disabled skips validation",
			mutate: func(c *Config) {
				c.Enabled = false
				c.BackupDir = "not even a path"
			},
		},
		{
			name:    "missing backup dir",
			mutate:  func(c *Config) { c.BackupDir = "" },
			wantErr: "backup directory is required",
		},
		{
			name:    "relative backup dir",
			mutate:  func(c *Config) { c.BackupDir = "relative/path" },
			wantErr: "absolute path",
		},
		{
			name:    "relative temp dir",
			mutate:  func(c *Config) { c.TempDir = "staging" },
			wantErr: "absolute path",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Format = Format("xml") },
			wantErr: "unsupported backup format",
		},
		{
			name:    "daily window below one",
			mutate:  func(c *Config) { c.Retention.KeepDailyDays = 0 },
			wantErr: "at least 1 day",
		},
		{
			name:    "negative weekly window",
			mutate:  func(c *Config) { c.Retention.KeepWeeklyWeeks = -1 },
			wantErr: "must not be negative",
		},
		{
			name:    "compression level too low",
			mutate:  func(c *Config) { c.Compression.Level = 0 },
			wantErr: "between 1 and 9",
		},
		{
			name:    "compression level too high",
			mutate:  func(c *Config) { c.Compression.Level = 11 },
			wantErr: "between 1 and 9",
		},
		{
			name:    "unknown compression algorithm",
			mutate:  func(c *Config) { c.Compression.Algorithm = "lz4" },
			wantErr: "unsupported compression algorithm",
		},
		{
			name: "explicit short encryption key",
			mutate: func(c *Config) {
				c.Encryption.Enabled = true
				c.Encryption.Key = "too-short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "empty key falls back to default",
			mutate: func(c *Config) {
				c.Encryption.Enabled = true
				c.Encryption.Key = ""
			},
		},
		{
			name:    "negative baseline age",
			mutate:  func(c *Config) { c.Incremental.MaxBaselineAge = -time.Hour },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigApplyDefaults tests zero-value defaulting
func TestConfigApplyDefaults(t *testing.T) {
	t.Parallel()

	c := &Config{
		Enabled:     true,
		BackupDir:   "/var/lib/archivarius/backups",
		Compression: CompressionConfig{Enabled: true},
	}
	c.applyDefaults()

	if c.TempDir != filepath.Join(c.BackupDir, ".staging") {
		t.Errorf("expected staging under backup dir, got %s", c.TempDir)
	}
	if c.ScratchDir == "" {
		t.Error("expected scratch dir default")
	}
	if c.Format != FormatJSON {
		t.Errorf("expected json default format, got %s", c.Format)
	}
	if c.CreatedBy != "system" {
		t.Errorf("expected created_by system, got %s", c.CreatedBy)
	}
	if c.Compression.Algorithm != AlgorithmGzip || c.Compression.Level != 6 {
		t.Errorf("expected gzip level 6 defaults, got %s level %d",
			c.Compression.Algorithm, c.Compression.Level)
	}
	if c.Retention != DefaultRetentionPolicy() {
		t.Errorf("expected default retention policy, got %+v", c.Retention)
	}
}

// TestConfigDefaultsKeepExplicitValues tests that defaults never override
// configured values
func TestConfigDefaultsKeepExplicitValues(t *testing.T) {
	t.Parallel()

	c := &Config{
		Enabled:   true,
		BackupDir: "/data/backups",
		TempDir:   "/data/staging",
		Format:    FormatSQL,
		CreatedBy: "ops-team",
		Retention: RetentionPolicy{KeepDailyDays: 7, KeepWeeklyWeeks: 4, KeepMonthlyMonths: 6},
	}
	c.applyDefaults()

	if c.TempDir != "/data/staging" {
		t.Errorf("temp dir was overridden: %s", c.TempDir)
	}
	if c.Format != FormatSQL {
		t.Errorf("format was overridden: %s", c.Format)
	}
	if c.CreatedBy != "ops-team" {
		t.Errorf("created_by was overridden: %s", c.CreatedBy)
	}
	if c.Retention.KeepDailyDays != 7 {
		t.Errorf("retention was overridden: %+v", c.Retention)
	}
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all engine configuration. The CLI builds it from the
// application config; tests build it by hand.
type Config struct {
	// Enable backup functionality
	Enabled bool

	// Directory for published artifacts and metadata sidecars
	BackupDir string

	// Staging directory for in-progress writes. Must live on the same
	// filesystem as BackupDir so publish is an atomic rename. Empty means
	// <BackupDir>/.staging.
	TempDir string

	// Scratch space for integrity-test intermediates. Empty means the
	// system temp directory.
	ScratchDir string

	// Default artifact format for new backups
	Format Format

	// Identity stamped on catalog rows (operator name or "system")
	CreatedBy string

	// Retention windows applied by Cleanup
	Retention RetentionPolicy

	// Compression settings
	Compression CompressionConfig

	// Encryption settings
	Encryption EncryptionConfig

	// Incremental backup settings
	Incremental IncrementalConfig

	// Run the full six-stage integrity test on every freshly created backup
	VerifyAfterCreate bool
}

// CompressionConfig defines compression settings for backup artifacts
type CompressionConfig struct {
	// Enable compression
	Enabled bool

	// Compression algorithm (gzip, zstd)
	Algorithm string

	// Compression level (1 fastest to 9 smallest)
	Level int
}

// EncryptionConfig defines encryption settings for backup artifacts
type EncryptionConfig struct {
	// Enable encryption
	Enabled bool

	// Secret the AES-256 data key is derived from. Empty falls back to the
	// built-in default key, which the engine flags as an operational risk
	// on every use.
	Key string
}

// IncrementalConfig defines incremental backup settings
type IncrementalConfig struct {
	// A baseline older than this is treated as unusable and the engine
	// falls back to a full backup. Zero disables the age check.
	MaxBaselineAge time.Duration
}

// applyDefaults fills zero values that have sensible defaults. Called by
// NewEngine before Validate.
func (c *Config) applyDefaults() {
	if c.TempDir == "" && c.BackupDir != "" {
		c.TempDir = filepath.Join(c.BackupDir, ".staging")
	}
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.CreatedBy == "" {
		c.CreatedBy = "system"
	}
	if c.Compression.Enabled && c.Compression.Algorithm == "" {
		c.Compression.Algorithm = "gzip"
	}
	if c.Compression.Enabled && c.Compression.Level == 0 {
		c.Compression.Level = 6
	}
	if c.Retention == (RetentionPolicy{}) {
		c.Retention = DefaultRetentionPolicy()
	}
}

// Validate checks that the configuration is usable
//
//nolint:gocyclo // Validation function with many sequential checks
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // No validation needed if backups are disabled
	}

	if c.BackupDir == "" {
		return fmt.Errorf("backup directory is required when backups are enabled")
	}
	if !filepath.IsAbs(c.BackupDir) {
		return fmt.Errorf("backup directory must be an absolute path, got: %s", c.BackupDir)
	}
	if !filepath.IsAbs(c.TempDir) {
		return fmt.Errorf("temp directory must be an absolute path, got: %s", c.TempDir)
	}

	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}

	if c.Retention.KeepDailyDays < 1 {
		return fmt.Errorf("retention daily window must be at least 1 day, got: %d", c.Retention.KeepDailyDays)
	}
	if c.Retention.KeepWeeklyWeeks < 0 || c.Retention.KeepMonthlyMonths < 0 {
		return fmt.Errorf("retention windows must not be negative")
	}

	if c.Compression.Enabled {
		if c.Compression.Level < 1 || c.Compression.Level > 9 {
			return fmt.Errorf("compression level must be between 1 and 9, got: %d", c.Compression.Level)
		}
		if c.Compression.Algorithm != AlgorithmGzip && c.Compression.Algorithm != AlgorithmZstd {
			return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, c.Compression.Algorithm)
		}
	}

	// An empty key is allowed and falls back to the built-in default; a
	// short explicit key is a misconfiguration worth failing on.
	if c.Encryption.Enabled && c.Encryption.Key != "" && len(c.Encryption.Key) < MinKeyLength {
		return fmt.Errorf("encryption key must be at least %d characters, got %d", MinKeyLength, len(c.Encryption.Key))
	}

	if c.Incremental.MaxBaselineAge < 0 {
		return fmt.Errorf("max baseline age must not be negative")
	}

	return nil
}

// EnsureDirs creates the backup, staging, and scratch directories
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.BackupDir, c.TempDir, c.ScratchDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

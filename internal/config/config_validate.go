// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// validate runs the struct-tag rules declared on the config types.
var validate = validator.New()

// Validate checks the configuration for structural and cross-field errors.
// Tag-level rules (ranges, enums) run first via go-playground/validator;
// the per-section checks below cover rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateEncryption(); err != nil {
		return err
	}

	if err := c.validateSink(); err != nil {
		return err
	}

	return c.validateMetrics()
}

// validateStorage ensures artifact paths are absolute. Relative paths would
// silently depend on the working directory of whatever cron job invoked us.
func (c *Config) validateStorage() error {
	if c.Storage.BackupDir == "" {
		return fmt.Errorf("storage.backup_dir must not be empty")
	}
	if !filepath.IsAbs(c.Storage.BackupDir) {
		return fmt.Errorf("storage.backup_dir must be an absolute path, got %q", c.Storage.BackupDir)
	}
	if c.Storage.TempDir != "" && !filepath.IsAbs(c.Storage.TempDir) {
		return fmt.Errorf("storage.temp_dir must be an absolute path, got %q", c.Storage.TempDir)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	return nil
}

// validateEncryption rejects keys that are present but too short to derive
// a real 256-bit data key from. An empty key is allowed; the engine then
// uses the documented weak default and warns about it at startup.
func (c *Config) validateEncryption() error {
	if !c.Encryption.Enabled {
		return nil
	}
	if c.Encryption.Key != "" && len(c.Encryption.Key) < 32 {
		return fmt.Errorf("encryption.key must be at least 32 characters, got %d", len(c.Encryption.Key))
	}
	return nil
}

func (c *Config) validateSink() error {
	if !c.Sink.Enabled {
		return nil
	}
	if c.Sink.Directory == "" {
		return fmt.Errorf("sink.directory must not be empty when the sink is enabled")
	}
	if !filepath.IsAbs(c.Sink.Directory) {
		return fmt.Errorf("sink.directory must be an absolute path, got %q", c.Sink.Directory)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.PushgatewayURL == "" {
		return fmt.Errorf("metrics.pushgateway_url must not be empty when metrics are enabled")
	}
	return nil
}

// EffectiveTempDir returns the staging directory, resolving the default
// relative to the backup directory so renames stay on one filesystem.
func (c *Config) EffectiveTempDir() string {
	if c.Storage.TempDir != "" {
		return c.Storage.TempDir
	}
	return filepath.Join(c.Storage.BackupDir, ".staging")
}

// EffectiveScratchDir returns the integrity-test scratch directory.
func (c *Config) EffectiveScratchDir() string {
	if c.Testing.ScratchDir != "" {
		return c.Testing.ScratchDir
	}
	return os.TempDir()
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/archivarius/config.yaml",
	"/etc/archivarius/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values. These
// defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			BackupDir: "/data/backups",
			TempDir:   "", // resolved to <backup_dir>/.staging
		},
		Database: DatabaseConfig{
			Path:      "/data/medistock.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Backup: BackupConfig{
			Format:    "json",
			CreatedBy: "system",
		},
		Retention: RetentionConfig{
			KeepDailyDays:     30,
			KeepWeeklyWeeks:   12,
			KeepMonthlyMonths: 12,
		},
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: "gzip",
			Level:     6,
		},
		Encryption: EncryptionConfig{
			Enabled: true,
			Key:     "", // empty falls back to the built-in weak default
		},
		Incremental: IncrementalConfig{
			MaxBaselineAgeDays: 0, // 0 = any completed full backup qualifies
		},
		Testing: TestingConfig{
			ScratchDir:        "", // resolved to os.TempDir()
			VerifyAfterCreate: false,
		},
		Sink: SinkConfig{
			Enabled:          false,
			Directory:        "",
			MaxBytesPerSec:   0, // unlimited
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			PushgatewayURL: "",
			JobName:        "archivarius",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (explicitPath, CONFIG_PATH, or the
//     default search paths)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults. The returned Config has passed
// Validate; treat it as immutable.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional unless explicitly requested)
	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// ARCHIVARIUS_BACKUP_DIR -> storage.backup_dir
	// ARCHIVARIUS_RETENTION_DAILY_DAYS -> retention.keep_daily_days
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc transforms environment variable names to koanf config
// paths. Unmapped variables return empty string and are skipped, which
// keeps unrelated environment noise out of the configuration.
//
// Examples:
//   - ARCHIVARIUS_BACKUP_DIR -> storage.backup_dir
//   - ARCHIVARIUS_COMPRESSION_LEVEL -> compression.level
//   - BACKUP_ENCRYPTION_KEY -> encryption.key (legacy alias)
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Storage mappings
		"archivarius_backup_dir": "storage.backup_dir",
		"archivarius_temp_dir":   "storage.temp_dir",

		// Database mappings
		"archivarius_db_path":       "database.path",
		"archivarius_db_max_memory": "database.max_memory",
		"archivarius_db_threads":    "database.threads",

		// Backup mappings
		"archivarius_backup_format":     "backup.format",
		"archivarius_backup_created_by": "backup.created_by",

		// Retention mappings
		"archivarius_retention_daily_days":     "retention.keep_daily_days",
		"archivarius_retention_weekly_weeks":   "retention.keep_weekly_weeks",
		"archivarius_retention_monthly_months": "retention.keep_monthly_months",

		// Compression mappings
		"archivarius_compression_enabled":   "compression.enabled",
		"archivarius_compression_algorithm": "compression.algorithm",
		"archivarius_compression_level":     "compression.level",

		// Encryption mappings (legacy alias kept for the old console deploys)
		"archivarius_encryption_enabled": "encryption.enabled",
		"archivarius_encryption_key":     "encryption.key",
		"backup_encryption_key":          "encryption.key",

		// Incremental mappings
		"archivarius_incremental_max_baseline_age_days": "incremental.max_baseline_age_days",

		// Testing mappings
		"archivarius_testing_scratch_dir":         "testing.scratch_dir",
		"archivarius_testing_verify_after_create": "testing.verify_after_create",

		// Sink mappings
		"archivarius_sink_enabled":           "sink.enabled",
		"archivarius_sink_directory":         "sink.directory",
		"archivarius_sink_max_bytes_per_sec": "sink.max_bytes_per_sec",
		"archivarius_sink_failure_threshold": "sink.failure_threshold",
		"archivarius_sink_reset_timeout":     "sink.reset_timeout",

		// Metrics mappings
		"archivarius_metrics_enabled":         "metrics.enabled",
		"archivarius_metrics_pushgateway_url": "metrics.pushgateway_url",
		"archivarius_metrics_job_name":        "metrics.job_name",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	return ""
}

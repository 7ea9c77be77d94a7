// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
config.go - Application Configuration Types

This file defines the nested configuration structure for Archivarius. The
configuration is immutable after loading: Load builds it once from defaults,
an optional YAML file, and environment variables, validates it, and hands it
to main. Nothing reassigns fields afterwards.

Sections map one-to-one onto engine concerns: storage, database, retention,
compression, encryption, incremental, testing, sink, metrics, logging.
*/

// Package config provides layered configuration loading for Archivarius.
//
// Precedence (highest wins): environment variables > config file > defaults.
// See Load for the loading pipeline and envTransformFunc for the supported
// environment variables.
package config

import "time"

// Config is the root configuration for Archivarius.
type Config struct {
	Storage     StorageConfig     `koanf:"storage"`
	Database    DatabaseConfig    `koanf:"database"`
	Backup      BackupConfig      `koanf:"backup"`
	Retention   RetentionConfig   `koanf:"retention"`
	Compression CompressionConfig `koanf:"compression"`
	Encryption  EncryptionConfig  `koanf:"encryption"`
	Incremental IncrementalConfig `koanf:"incremental"`
	Testing     TestingConfig     `koanf:"testing"`
	Sink        SinkConfig        `koanf:"sink"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// StorageConfig holds artifact storage settings.
//
// Environment Variables:
//   - ARCHIVARIUS_BACKUP_DIR: directory for backup artifacts and sidecars (default: /data/backups)
//   - ARCHIVARIUS_TEMP_DIR: staging directory for in-progress writes (default: <backup_dir>/.staging)
type StorageConfig struct {
	// BackupDir is where finished artifacts and metadata sidecars live.
	// Must be an absolute path.
	BackupDir string `koanf:"backup_dir"`

	// TempDir is the staging area for in-progress artifact writes. It must
	// sit on the same filesystem as BackupDir so the final publish is an
	// atomic rename. Empty means <backup_dir>/.staging.
	TempDir string `koanf:"temp_dir"`
}

// DatabaseConfig holds DuckDB settings for the primary store (business
// records plus the backup catalog).
//
// Environment Variables:
//   - ARCHIVARIUS_DB_PATH: DuckDB database file (default: /data/medistock.duckdb)
//   - ARCHIVARIUS_DB_MAX_MEMORY: DuckDB memory limit (default: 1GB)
//   - ARCHIVARIUS_DB_THREADS: DuckDB thread count, 0 = NumCPU (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"`
}

// BackupConfig holds defaults applied to every backup run. The CLI can
// override Format per invocation.
//
// Environment Variables:
//   - ARCHIVARIUS_BACKUP_FORMAT: json, csv, or sql (default: json)
//   - ARCHIVARIUS_BACKUP_CREATED_BY: operator tag stamped on catalog rows
//     (default: system)
type BackupConfig struct {
	Format    string `koanf:"format" validate:"omitempty,oneof=json csv sql"`
	CreatedBy string `koanf:"created_by"`
}

// RetentionConfig defines the tiered retention windows applied by cleanup.
//
// Backups newer than KeepDailyDays are always kept. Older backups survive
// only when they sit on a calendar anchor: first day of their ISO week
// within KeepWeeklyWeeks, or first day of their month within
// KeepMonthlyMonths. Everything else is deleted, except baselines still
// referenced by a retained incremental backup.
//
// Environment Variables:
//   - ARCHIVARIUS_RETENTION_DAILY_DAYS (default: 30)
//   - ARCHIVARIUS_RETENTION_WEEKLY_WEEKS (default: 12)
//   - ARCHIVARIUS_RETENTION_MONTHLY_MONTHS (default: 12)
type RetentionConfig struct {
	KeepDailyDays     int `koanf:"keep_daily_days" validate:"min=1"`
	KeepWeeklyWeeks   int `koanf:"keep_weekly_weeks" validate:"min=0"`
	KeepMonthlyMonths int `koanf:"keep_monthly_months" validate:"min=0"`
}

// CompressionConfig controls the compression stage.
//
// Environment Variables:
//   - ARCHIVARIUS_COMPRESSION_ENABLED (default: true)
//   - ARCHIVARIUS_COMPRESSION_ALGORITHM: gzip or zstd (default: gzip)
//   - ARCHIVARIUS_COMPRESSION_LEVEL: 1 (fastest) to 9 (best) (default: 6)
type CompressionConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Algorithm string `koanf:"algorithm" validate:"omitempty,oneof=gzip zstd"`
	Level     int    `koanf:"level" validate:"min=1,max=9"`
}

// EncryptionConfig controls the encryption stage.
//
// An empty Key with Enabled=true makes the engine fall back to a built-in
// default key. That default is documented and deliberately weak; the engine
// logs a loud operational-risk warning whenever it is in effect. Supply a
// real secret of at least 32 characters in production.
//
// Environment Variables:
//   - ARCHIVARIUS_ENCRYPTION_ENABLED (default: true)
//   - ARCHIVARIUS_ENCRYPTION_KEY: secret used to derive the data key
//   - BACKUP_ENCRYPTION_KEY: legacy alias for the same secret
type EncryptionConfig struct {
	Enabled bool   `koanf:"enabled"`
	Key     string `koanf:"key"`
}

// IncrementalConfig controls incremental backup behavior.
//
// Environment Variables:
//   - ARCHIVARIUS_INCREMENTAL_MAX_BASELINE_AGE_DAYS: a baseline older than
//     this is treated as unusable and the engine falls back to a full
//     backup; 0 disables the age check (default: 0)
type IncrementalConfig struct {
	MaxBaselineAgeDays int `koanf:"max_baseline_age_days" validate:"min=0"`
}

// TestingConfig controls the integrity tester.
//
// Environment Variables:
//   - ARCHIVARIUS_TESTING_SCRATCH_DIR: scratch space for decrypted and
//     decompressed intermediate copies (default: os.TempDir())
//   - ARCHIVARIUS_TESTING_VERIFY_AFTER_CREATE: run the full six-stage test
//     on every freshly created backup (default: false)
type TestingConfig struct {
	ScratchDir        string `koanf:"scratch_dir"`
	VerifyAfterCreate bool   `koanf:"verify_after_create"`
}

// SinkConfig configures the optional best-effort upload sink. Upload
// happens after local durability is established; sink failure never fails
// the backup itself.
//
// Environment Variables:
//   - ARCHIVARIUS_SINK_ENABLED (default: false)
//   - ARCHIVARIUS_SINK_DIRECTORY: target directory of the local sink
//   - ARCHIVARIUS_SINK_MAX_BYTES_PER_SEC: upload throttle, 0 = unlimited
//   - ARCHIVARIUS_SINK_FAILURE_THRESHOLD: consecutive failures before the
//     circuit breaker opens (default: 3)
//   - ARCHIVARIUS_SINK_RESET_TIMEOUT: how long the breaker stays open
//     (default: 60s)
type SinkConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Directory        string        `koanf:"directory"`
	MaxBytesPerSec   int64         `koanf:"max_bytes_per_sec" validate:"min=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
	ResetTimeout     time.Duration `koanf:"reset_timeout"`
}

// MetricsConfig configures Prometheus metrics publication. Archivarius runs
// as short-lived batch invocations, so metrics are pushed to a Pushgateway
// when configured rather than scraped.
//
// Environment Variables:
//   - ARCHIVARIUS_METRICS_ENABLED (default: false)
//   - ARCHIVARIUS_METRICS_PUSHGATEWAY_URL: Pushgateway base URL
//   - ARCHIVARIUS_METRICS_JOB_NAME (default: archivarius)
type MetricsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	JobName        string `koanf:"job_name"`
}

// LoggingConfig configures the global logger.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error, fatal (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

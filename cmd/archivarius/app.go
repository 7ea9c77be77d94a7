// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
app.go - Component Wiring

newApp assembles the production object graph for one CLI invocation:

 1. DuckDB via internal/database (records plus backup catalog)
 2. Inventory store as the backup source and restore target
 3. Backup engine configured from the loaded configuration
 4. Optional upload sink behind the resilient decorator

Invocations are short-lived, so there is no lazy initialization and no
reconnect logic. Everything is opened up front and closed in Close.
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/config"
	"github.com/medistock/archivarius/internal/database"
	"github.com/medistock/archivarius/internal/inventory"
	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// metricsPushTimeout bounds the final pushgateway call so a dead gateway
// cannot hang a cron run that already finished its real work.
const metricsPushTimeout = 10 * time.Second

// app holds the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	db     *database.DB
	store  *inventory.Store
	engine *backup.Engine
}

// newApp builds the full component graph from the loaded configuration.
// On any failure the database is closed before returning.
func newApp() (*app, error) {
	cfg := appCfg

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := inventory.NewStore(db.Conn())
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to initialize inventory store: %w", err)
	}

	engine, err := backup.NewEngine(engineConfig(cfg), store, db)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to initialize backup engine: %w", err)
	}
	engine.SetRestoreTarget(store)

	if cfg.Sink.Enabled {
		local, err := backup.NewLocalDirSink(cfg.Sink.Directory)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("failed to initialize sink: %w", err)
		}
		engine.SetSink(backup.NewResilientSink(local, backup.ResilientSinkConfig{
			FailureThreshold: cfg.Sink.FailureThreshold,
			ResetTimeout:     cfg.Sink.ResetTimeout,
			MaxBytesPerSec:   cfg.Sink.MaxBytesPerSec,
		}))
	}

	return &app{cfg: cfg, db: db, store: store, engine: engine}, nil
}

// engineConfig maps the CLI configuration onto the engine's own Config.
// The engine is always enabled here: invoking the binary is the decision
// to use it.
func engineConfig(cfg *config.Config) *backup.Config {
	return &backup.Config{
		Enabled:    true,
		BackupDir:  cfg.Storage.BackupDir,
		TempDir:    cfg.EffectiveTempDir(),
		ScratchDir: cfg.EffectiveScratchDir(),
		Format:     backup.Format(cfg.Backup.Format),
		CreatedBy:  cfg.Backup.CreatedBy,
		Retention: backup.RetentionPolicy{
			KeepDailyDays:     cfg.Retention.KeepDailyDays,
			KeepWeeklyWeeks:   cfg.Retention.KeepWeeklyWeeks,
			KeepMonthlyMonths: cfg.Retention.KeepMonthlyMonths,
		},
		Compression: backup.CompressionConfig{
			Enabled:   cfg.Compression.Enabled,
			Algorithm: cfg.Compression.Algorithm,
			Level:     cfg.Compression.Level,
		},
		Encryption: backup.EncryptionConfig{
			Enabled: cfg.Encryption.Enabled,
			Key:     cfg.Encryption.Key,
		},
		Incremental: backup.IncrementalConfig{
			MaxBaselineAge: time.Duration(cfg.Incremental.MaxBaselineAgeDays) * 24 * time.Hour,
		},
		VerifyAfterCreate: cfg.Testing.VerifyAfterCreate,
	}
}

// Close releases the database. Safe to defer immediately after newApp.
func (a *app) Close() {
	closeDB(a.db)
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

// pushMetrics publishes collected metrics to the configured Pushgateway.
// It runs on its own context so an interrupted command still reports the
// work it did, and failure to push never fails the command.
func (a *app) pushMetrics() {
	m := a.cfg.Metrics
	if !m.Enabled || m.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()

	if err := metrics.Push(ctx, m.PushgatewayURL, m.JobName); err != nil {
		logging.Warn().Err(err).Msg("Failed to push metrics")
	}
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stats summarizes the catalog for dashboards and the stats command
func (e *Engine) Stats(ctx context.Context) (*BackupStats, error) {
	entries, err := e.catalog.ListEntries(ctx, BackupListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog for stats: %w", err)
	}
	return calculateBackupStats(entries, e.cfg.Retention), nil
}

// calculateBackupStats folds catalog rows into aggregate statistics
func calculateBackupStats(entries []*Backup, policy RetentionPolicy) *BackupStats {
	stats := &BackupStats{
		TotalCount:      len(entries),
		CountByType:     make(map[BackupType]int),
		CountByStatus:   make(map[BackupStatus]int),
		RetentionPolicy: policy,
	}

	var (
		completedCount int
		completedSize  int64
		totalDuration  time.Duration
	)

	for _, b := range entries {
		stats.CountByType[b.Type]++
		stats.CountByStatus[b.Status]++
		stats.TotalSizeBytes += b.FileSize

		if b.Status == StatusCompleted {
			completedCount++
			completedSize += b.FileSize
			totalDuration += b.Duration
		}

		created := b.CreatedAt
		if stats.OldestBackup == nil || created.Before(*stats.OldestBackup) {
			t := created
			stats.OldestBackup = &t
		}
		if stats.NewestBackup == nil || created.After(*stats.NewestBackup) {
			t := created
			stats.NewestBackup = &t
		}
		if stats.LastBackup == nil || created.After(stats.LastBackup.CreatedAt) {
			stats.LastBackup = b
		}
	}

	if completedCount > 0 {
		stats.AverageSizeBytes = completedSize / int64(completedCount)
		stats.AverageDuration = totalDuration / time.Duration(completedCount)
	}
	if len(entries) > 0 {
		stats.SuccessRate = float64(completedCount) / float64(len(entries)) * 100
	}

	return stats
}

// SetupCheck is one pass or fail item in a setup report
type SetupCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// SetupReport describes whether the engine can actually take a backup
type SetupReport struct {
	Healthy bool         `json:"healthy"`
	Checks  []SetupCheck `json:"checks"`
}

// VerifySetup probes the environment the engine depends on: staging and
// publish on the same filesystem, a reachable catalog, a writable scratch
// area. It also flags the weak default encryption key. Run it at install
// time and after storage changes, not on every backup.
func (e *Engine) VerifySetup(ctx context.Context) *SetupReport {
	report := &SetupReport{Healthy: true}
	add := func(name string, ok bool, detail string) {
		report.Checks = append(report.Checks, SetupCheck{Name: name, OK: ok, Detail: detail})
		if !ok {
			report.Healthy = false
		}
	}

	add("backup_dir", true, e.cfg.BackupDir)
	if err := e.probeStagingRename(); err != nil {
		add("staging_rename", false, err.Error())
	} else {
		add("staging_rename", true, "temp file renames atomically into backup dir")
	}

	if _, err := e.catalog.ListEntries(ctx, BackupListOptions{Limit: 1}); err != nil {
		add("catalog", false, err.Error())
	} else {
		add("catalog", true, "catalog reachable")
	}

	if err := probeWritable(e.cfg.ScratchDir); err != nil {
		add("scratch_dir", false, err.Error())
	} else {
		add("scratch_dir", true, e.cfg.ScratchDir)
	}

	if e.cfg.Encryption.Enabled && e.cfg.Encryption.Key == "" {
		add("encryption_key", false, "encryption enabled without a key; the built-in default protects nothing against anyone with access to this binary")
	} else if e.cfg.Encryption.Enabled {
		add("encryption_key", true, "operator-provided key configured")
	} else {
		add("encryption_key", true, "encryption disabled")
	}

	if e.sink != nil {
		add("sink", true, e.sink.Name())
	} else {
		add("sink", true, "no sink configured; artifacts stay local only")
	}

	return report
}

// probeStagingRename proves the temp and backup directories share a
// filesystem, otherwise the atomic publish rename would fail at runtime
func (e *Engine) probeStagingRename() error {
	tmp, err := os.CreateTemp(e.cfg.TempDir, ".probe-*")
	if err != nil {
		return fmt.Errorf("staging dir not writable: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to close probe file: %w", err)
	}

	dest := filepath.Join(e.cfg.BackupDir, filepath.Base(tmpPath))
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("rename from staging into backup dir failed (cross-device mount?): %w", err)
	}
	if err := os.Remove(dest); err != nil {
		return fmt.Errorf("failed to remove probe file: %w", err)
	}
	return nil
}

// probeWritable verifies a directory exists and accepts new files
func probeWritable(dir string) error {
	tmp, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(name) //nolint:errcheck // Best effort cleanup
		return err
	}
	return os.Remove(name)
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
retention.go - Calendar-Anchored Retention

Cleanup decides what survives using three windows:

	daily   - every backup younger than KeepDailyDays is kept, any status
	weekly  - completed backups created on a Monday survive KeepWeeklyWeeks
	monthly - completed backups created on the 1st survive KeepMonthlyMonths

Anchors are calendar positions, not sampling: an old backup survives because
it was taken on an anchor day, so the set of survivors is stable across runs
and does not depend on what else exists. Pending backups are never deleted.
Failed and corrupted backups get only the daily window; anchors protect
restore points, which they are not.

Dependency Safety:
A full backup referenced as baseline by any kept incremental is kept too,
whatever the windows say. Deleting it would strand the incremental.

Deletion Order:
Artifact file, then metadata sidecar, then catalog row. The row goes last so
a failure mid-sequence leaves a row pointing at whatever still exists
instead of orphaning bytes with no index entry. Failures are collected per
backup; one stubborn file does not stop the sweep.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// CleanupReport describes one retention sweep. WouldKeep and WouldDelete are
// always populated; the execution counters stay zero on a dry run.
type CleanupReport struct {
	// Whether this was a preview only
	DryRun bool `json:"dry_run"`

	// What the sweep decided, with per-backup reasons
	WouldKeep   []*PreviewItem `json:"would_keep"`
	WouldDelete []*PreviewItem `json:"would_delete"`

	// Execution outcome (zero on dry run)
	DeletedCount   int              `json:"deleted_count"`
	ReclaimedBytes int64            `json:"reclaimed_bytes"`
	Failures       []CleanupFailure `json:"failures,omitempty"`
}

// PreviewItem is one backup in a cleanup decision
type PreviewItem struct {
	ID        string       `json:"id"`
	Type      BackupType   `json:"type"`
	Status    BackupStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	FileSize  int64        `json:"file_size"`
	Reasons   []string     `json:"reasons"`
}

// CleanupFailure records one backup that could not be fully deleted
type CleanupFailure struct {
	BackupID string `json:"backup_id"`
	Step     string `json:"step"` // artifact, sidecar, or catalog
	Error    string `json:"error"`
}

// Cleanup applies the retention policy. With dryRun set it only reports what
// would happen.
func (e *Engine) Cleanup(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	if !e.cfg.Enabled {
		return nil, ErrBackupsDisabled
	}
	ctx = opContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.catalog.ListEntries(ctx, BackupListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog for cleanup: %w", err)
	}

	now := e.now().UTC()
	policy := e.cfg.Retention
	keepReasons := buildKeepReasons(entries, policy, now)

	report := &CleanupReport{
		DryRun:      dryRun,
		WouldKeep:   make([]*PreviewItem, 0),
		WouldDelete: make([]*PreviewItem, 0),
	}

	var victims []*Backup
	for _, b := range entries {
		item := &PreviewItem{
			ID:        b.ID,
			Type:      b.Type,
			Status:    b.Status,
			CreatedAt: b.CreatedAt,
			FileSize:  b.FileSize,
		}
		if reasons, kept := keepReasons[b.ID]; kept {
			item.Reasons = reasons
			report.WouldKeep = append(report.WouldKeep, item)
		} else {
			item.Reasons = []string{deleteReason(b, policy)}
			report.WouldDelete = append(report.WouldDelete, item)
			victims = append(victims, b)
		}
	}

	if dryRun {
		return report, nil
	}

	for _, b := range victims {
		e.deleteForRetention(ctx, b, report)
	}

	metrics.RecordRetentionRun(report.DeletedCount, report.ReclaimedBytes, len(report.Failures))
	logging.Ctx(ctx).Info().
		Int("deleted", report.DeletedCount).
		Int("kept", len(report.WouldKeep)).
		Int("failures", len(report.Failures)).
		Float64("reclaimed_mb", float64(report.ReclaimedBytes)/(1024*1024)).
		Msg("Retention sweep finished")

	return report, nil
}

// buildKeepReasons maps backup IDs to the reasons they survive the sweep.
// Absent from the map means delete. Pure function of its inputs so retention
// decisions are reproducible for any reference time.
func buildKeepReasons(backups []*Backup, policy RetentionPolicy, now time.Time) map[string][]string {
	reasons := make(map[string][]string)

	dailyCutoff := now.AddDate(0, 0, -policy.KeepDailyDays)
	weeklyCutoff := now.AddDate(0, 0, -policy.KeepWeeklyWeeks*7)
	monthlyCutoff := now.AddDate(0, -policy.KeepMonthlyMonths, 0)

	for _, b := range backups {
		if b.Status == StatusPending {
			reasons[b.ID] = append(reasons[b.ID], "backup in progress")
			continue
		}

		created := b.CreatedAt.UTC()
		if created.After(dailyCutoff) {
			reasons[b.ID] = append(reasons[b.ID],
				fmt.Sprintf("within daily window (%dd)", policy.KeepDailyDays))
		}

		// Anchors protect restore points only
		if b.Status != StatusCompleted {
			continue
		}
		if policy.KeepWeeklyWeeks > 0 && created.After(weeklyCutoff) && isWeekAnchor(created) {
			reasons[b.ID] = append(reasons[b.ID],
				fmt.Sprintf("weekly anchor (Monday) within %dw", policy.KeepWeeklyWeeks))
		}
		if policy.KeepMonthlyMonths > 0 && created.After(monthlyCutoff) && isMonthAnchor(created) {
			reasons[b.ID] = append(reasons[b.ID],
				fmt.Sprintf("monthly anchor (1st) within %dmo", policy.KeepMonthlyMonths))
		}
	}

	// Dependency safety: a kept incremental pins its baseline
	for _, b := range backups {
		if b.Type != TypeIncremental || b.BaselineID == "" {
			continue
		}
		if _, kept := reasons[b.ID]; !kept {
			continue
		}
		reasons[b.BaselineID] = append(reasons[b.BaselineID],
			fmt.Sprintf("baseline of retained incremental %s", shortID(b.ID)))
	}

	return reasons
}

// isWeekAnchor reports whether t falls on the weekly anchor day
func isWeekAnchor(t time.Time) bool {
	return t.Weekday() == time.Monday
}

// isMonthAnchor reports whether t falls on the monthly anchor day
func isMonthAnchor(t time.Time) bool {
	return t.Day() == 1
}

// deleteReason explains why a backup fell out of retention
func deleteReason(b *Backup, policy RetentionPolicy) string {
	if b.Status == StatusFailed || b.Status == StatusCorrupted {
		return fmt.Sprintf("%s backup outside daily window (%dd)", b.Status, policy.KeepDailyDays)
	}
	return fmt.Sprintf("outside daily window (%dd), not on a retained weekly or monthly anchor",
		policy.KeepDailyDays)
}

// shortID returns the first ID segment for log-friendly references
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// deleteForRetention removes one backup in the fixed order: artifact, then
// sidecar, then catalog row. The first failing step is recorded and the rest
// are skipped, leaving the catalog row as the pointer to what remains.
func (e *Engine) deleteForRetention(ctx context.Context, b *Backup, report *CleanupReport) {
	if b.FilePath != "" {
		if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
			report.Failures = append(report.Failures, CleanupFailure{
				BackupID: b.ID, Step: "artifact", Error: err.Error(),
			})
			logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Retention failed to delete artifact")
			return
		}
	}

	if err := e.metadata.Delete(b.ID); err != nil {
		report.Failures = append(report.Failures, CleanupFailure{
			BackupID: b.ID, Step: "sidecar", Error: err.Error(),
		})
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Retention failed to delete sidecar")
		return
	}

	if err := e.catalog.DeleteEntry(ctx, b.ID); err != nil {
		report.Failures = append(report.Failures, CleanupFailure{
			BackupID: b.ID, Step: "catalog", Error: err.Error(),
		})
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Retention failed to delete catalog row")
		return
	}

	report.DeletedCount++
	report.ReclaimedBytes += b.FileSize
	logging.Ctx(ctx).Debug().
		Str("backup_id", b.ID).
		Str("type", string(b.Type)).
		Time("created_at", b.CreatedAt).
		Msg("Backup deleted by retention")
}

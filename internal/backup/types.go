// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"fmt"
	"time"
)

// AppVersion is set at build time
var AppVersion = "dev"

// BackupType defines the type of backup to create
type BackupType string

const (
	// TypeFull captures every record in the inventory store
	TypeFull BackupType = "full"

	// TypeIncremental captures records created or updated since the baseline
	// full backup
	TypeIncremental BackupType = "incremental"
)

// BackupStatus represents the current state of a backup
type BackupStatus string

const (
	// StatusPending indicates the attempt is claimed but not yet durable
	StatusPending BackupStatus = "pending"

	// StatusCompleted indicates the artifact, sidecar, and catalog row are
	// all in place
	StatusCompleted BackupStatus = "completed"

	// StatusFailed indicates the attempt failed before completion
	StatusFailed BackupStatus = "failed"

	// StatusCorrupted indicates a later integrity test found the artifact
	// no longer matches its recorded checksum
	StatusCorrupted BackupStatus = "corrupted"
)

// BackupTrigger indicates what initiated the backup
type BackupTrigger string

const (
	// TriggerManual indicates an operator ran the CLI by hand
	TriggerManual BackupTrigger = "manual"

	// TriggerScheduled indicates the CLI was invoked by cron or similar
	TriggerScheduled BackupTrigger = "scheduled"

	// TriggerPreRestore indicates a safety backup taken before a restore
	TriggerPreRestore BackupTrigger = "pre_restore"
)

// Format identifies the serialization format of a backup artifact
type Format string

const (
	// FormatJSON is a structured envelope with typed fields
	FormatJSON Format = "json"

	// FormatCSV is a five-column tabular layout with a header row
	FormatCSV Format = "csv"

	// FormatSQL is a sequence of INSERT statements with a comment preamble
	FormatSQL Format = "sql"
)

// ParseFormat converts a string into a Format, rejecting unknown values
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatSQL:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension for the format, without the leading dot
func (f Format) Ext() string {
	return string(f)
}

// Record is one inventory record as the backup engine sees it. Business
// columns live in Fields as strings; the engine never interprets them beyond
// serializing and restoring them byte for byte.
type Record struct {
	// Unique record identifier
	ID string `json:"id"`

	// Record classification (e.g. item, lot, supplier)
	Kind string `json:"kind"`

	// When the record was first created
	CreatedAt time.Time `json:"created_at"`

	// When the record was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// Business columns, opaque to the engine
	Fields map[string]string `json:"fields,omitempty"`
}

// Snapshot is a point-in-time capture of the inventory store
type Snapshot struct {
	// When the snapshot was taken
	TakenAt time.Time `json:"taken_at"`

	// All records visible at TakenAt, ordered by ID
	Records []Record `json:"records"`
}

// ChangeSet describes what changed since a reference point in time
type ChangeSet struct {
	// The reference point the changes are relative to
	Since time.Time `json:"since"`

	// Records created strictly after Since
	Created []Record `json:"created"`

	// Records updated strictly after Since but created at or before it.
	// A record never appears in both Created and Updated.
	Updated []Record `json:"updated"`

	// IDs of records deleted since Since. Empty unless the source keeps a
	// deletion audit trail.
	Deleted []string `json:"deleted"`
}

// IncrementalPayload is the serialized body of an incremental backup: the
// change sets plus the anchors that make replay deterministic. From is the
// baseline sidecar's timestamp, never a caller-supplied value; To is when the
// changed records were captured.
type IncrementalPayload struct {
	// The completed full backup the changes are relative to
	BaselineID string `json:"baseline_id"`

	// Anchor timestamps of the diff window
	From time.Time `json:"from_timestamp"`
	To   time.Time `json:"to_timestamp"`

	// Records created inside the window
	Created []Record `json:"created"`

	// Records updated inside the window but created before it
	Updated []Record `json:"updated"`

	// IDs of records deleted inside the window
	Deleted []string `json:"deleted"`
}

// ChangeCount is the declared total a parsed payload must satisfy:
// |created| + |updated| + |deleted|
func (p *IncrementalPayload) ChangeCount() int {
	return len(p.Created) + len(p.Updated) + len(p.Deleted)
}

// ChangedRecords flattens the record-bearing change sets into restore
// application order: created first, then updated, preserving source order
// inside each group
func (p *IncrementalPayload) ChangedRecords() []Record {
	out := make([]Record, 0, len(p.Created)+len(p.Updated))
	out = append(out, p.Created...)
	out = append(out, p.Updated...)
	return out
}

// Backup represents metadata about a backup. The same struct backs the
// catalog row and the JSON metadata sidecar.
type Backup struct {
	// Unique identifier for the backup
	ID string `json:"id"`

	// Type of backup (full, incremental)
	Type BackupType `json:"type"`

	// Current status of the backup
	Status BackupStatus `json:"status"`

	// What triggered this backup
	Trigger BackupTrigger `json:"trigger"`

	// Serialization format of the artifact
	Format Format `json:"format"`

	// When the backup was created
	CreatedAt time.Time `json:"created_at"`

	// When the backup completed (or failed)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Duration of the backup operation
	Duration time.Duration `json:"duration_ms"`

	// Path to the published artifact
	FilePath string `json:"file_path"`

	// Size of the published artifact in bytes
	FileSize int64 `json:"file_size"`

	// SHA-256 checksum of the published artifact
	Checksum string `json:"checksum"`

	// Whether the artifact is compressed, and with what
	Compressed  bool   `json:"compressed"`
	Compression string `json:"compression,omitempty"`

	// Whether the artifact is encrypted
	Encrypted bool `json:"encrypted"`

	// Number of records in the artifact payload
	RecordCount int64 `json:"record_count"`

	// For incrementals: the completed full backup the diff is relative to
	BaselineID string `json:"baseline_id,omitempty"`

	// For incrementals: IDs deleted since the baseline, mirrored from the
	// artifact payload so listings can show deletions without reading and
	// unsealing the artifact
	DeletedIDs []string `json:"deleted_ids,omitempty"`

	// Operator or system identity that requested the backup
	CreatedBy string `json:"created_by"`

	// Application version at time of backup
	AppVersion string `json:"app_version"`

	// Free-form operator notes
	Notes string `json:"notes,omitempty"`

	// Error message if the backup failed
	Error string `json:"error,omitempty"`
}

// BackupListOptions provides filtering and pagination for backup listing
type BackupListOptions struct {
	// Filter by backup type
	Type *BackupType `json:"type,omitempty"`

	// Filter by backup status
	Status *BackupStatus `json:"status,omitempty"`

	// Filter by date range
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Pagination
	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	// Sort order (newest first when true)
	SortDesc bool `json:"sort_desc"`
}

// RetentionPolicy defines how backups are retained.
//
// Backups younger than KeepDailyDays are always kept. Older backups survive
// only on calendar anchors: created on a Monday within KeepWeeklyWeeks, or on
// the first of a month within KeepMonthlyMonths. A full backup referenced as
// baseline by a retained incremental is kept regardless of the windows.
type RetentionPolicy struct {
	// Keep every backup from the last N days
	KeepDailyDays int `json:"keep_daily_days"`

	// Keep Monday-anchored backups for the last N weeks (0 disables)
	KeepWeeklyWeeks int `json:"keep_weekly_weeks"`

	// Keep first-of-month backups for the last N months (0 disables)
	KeepMonthlyMonths int `json:"keep_monthly_months"`
}

// DefaultRetentionPolicy returns the retention windows used when nothing is
// configured
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		KeepDailyDays:     30,
		KeepWeeklyWeeks:   12,
		KeepMonthlyMonths: 12,
	}
}

// BackupStats contains statistics about the backup system
type BackupStats struct {
	// Total number of backups
	TotalCount int `json:"total_count"`

	// Breakdown by type
	CountByType map[BackupType]int `json:"count_by_type"`

	// Breakdown by status
	CountByStatus map[BackupStatus]int `json:"count_by_status"`

	// Total disk space used by backup artifacts
	TotalSizeBytes int64 `json:"total_size_bytes"`

	// Average artifact size across completed backups
	AverageSizeBytes int64 `json:"average_size_bytes"`

	// Date range of backups
	OldestBackup *time.Time `json:"oldest_backup,omitempty"`
	NewestBackup *time.Time `json:"newest_backup,omitempty"`

	// Average duration of completed backups
	AverageDuration time.Duration `json:"average_duration_ms"`

	// Percentage of backups that completed (0-100)
	SuccessRate float64 `json:"success_rate"`

	// Most recent backup by creation time
	LastBackup *Backup `json:"last_backup,omitempty"`

	// Retention policy in effect
	RetentionPolicy RetentionPolicy `json:"retention_policy"`
}

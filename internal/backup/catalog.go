// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"time"
)

// Catalog is the relational index of backups. The engine creates a pending
// row before writing any bytes, flips it to completed once the artifact and
// sidecar are durable, and deletes rows last during cleanup.
//
// Implemented by the DuckDB store in internal/database.
type Catalog interface {
	// CreateEntry inserts a new catalog row, normally with StatusPending
	CreateEntry(ctx context.Context, b *Backup) error

	// UpdateEntry rewrites the row for b.ID with the backup's current state
	UpdateEntry(ctx context.Context, b *Backup) error

	// GetEntry returns the row for the given ID, or ErrBackupNotFound
	GetEntry(ctx context.Context, id string) (*Backup, error)

	// ListEntries returns rows matching the filter options
	ListEntries(ctx context.Context, opts BackupListOptions) ([]*Backup, error)

	// DeleteEntry removes the row for the given ID, or ErrBackupNotFound
	DeleteEntry(ctx context.Context, id string) error

	// LatestCompletedFull returns the newest completed full backup, or
	// ErrNoBaseline when none exists
	LatestCompletedFull(ctx context.Context) (*Backup, error)
}

// Source supplies the records being backed up.
//
// Implemented by the inventory store in internal/inventory.
type Source interface {
	// Snapshot captures every current record, ordered by ID, with
	// timestamps in UTC
	Snapshot(ctx context.Context) (*Snapshot, error)

	// DeletedSince returns IDs of records deleted after the reference
	// point. Sources without a deletion audit trail return an empty slice;
	// incremental backups then cannot replay deletions, which is a known
	// gap rather than an error.
	DeletedSince(ctx context.Context, since time.Time) ([]string, error)
}

// RestoreTarget receives records during restore operations and integrity
// trial restores. Targets write into the named table, never the live one,
// unless the caller says otherwise.
//
// Implemented by the inventory store in internal/inventory.
type RestoreTarget interface {
	// RestoreSnapshot replaces the contents of table with the given
	// records, creating the table if needed. Returns the rows written.
	RestoreSnapshot(ctx context.Context, table string, records []Record) (int64, error)

	// ApplyChanges upserts records into table and deletes the given IDs.
	// Returns rows upserted and rows actually deleted.
	ApplyChanges(ctx context.Context, table string, records []Record, deletedIDs []string) (upserted, deleted int64, err error)

	// DropTable removes a scratch table created during a trial restore.
	// Dropping a missing table is not an error.
	DropTable(ctx context.Context, table string) error
}

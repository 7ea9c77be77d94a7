// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
schema.go - Database Schema Management

Tables:
  - inventory_records: the live business records the backup engine
    snapshots. The payload is a JSON field bag so items, suppliers, and
    locations share one shape; the typed web schema lives upstream in the
    admin console, not here.
  - backup_catalog: one row per backup ever attempted, pending rows
    included. The engine claims a row before writing bytes and flips it to
    completed after the artifact is durable, so this table is the source
    of truth for what exists.

Restore tables (inventory_records_restored and trial-restore scratch
tables) are created on demand by the inventory store with the same column
set as inventory_records.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS inventory_records (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			fields_json TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS backup_catalog (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			triggered_by TEXT NOT NULL,
			format TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			file_path TEXT NOT NULL DEFAULT '',
			file_size BIGINT NOT NULL DEFAULT 0,
			checksum TEXT NOT NULL DEFAULT '',
			compressed BOOLEAN NOT NULL DEFAULT false,
			compression TEXT NOT NULL DEFAULT '',
			encrypted BOOLEAN NOT NULL DEFAULT false,
			record_count BIGINT NOT NULL DEFAULT 0,
			baseline_id TEXT NOT NULL DEFAULT '',
			deleted_ids TEXT NOT NULL DEFAULT '[]',
			created_by TEXT NOT NULL DEFAULT '',
			app_version TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
	}
}

// createIndexes creates indexes for common query patterns
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		// Catalog listing sorts and filters
		`CREATE INDEX IF NOT EXISTS idx_catalog_created_at ON backup_catalog(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_status ON backup_catalog(status)`,
		// Baseline resolution: newest completed full
		`CREATE INDEX IF NOT EXISTS idx_catalog_type_status ON backup_catalog(type, status)`,
		// Dependency checks before deleting a full backup
		`CREATE INDEX IF NOT EXISTS idx_catalog_baseline ON backup_catalog(baseline_id)`,
		// Incremental diff scans
		`CREATE INDEX IF NOT EXISTS idx_inventory_updated_at ON inventory_records(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_kind ON inventory_records(kind)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
catalog.go - Backup Catalog Store

DuckDB implementation of the backup.Catalog interface. One row per backup,
keyed by ID. DeletedIDs is stored as a JSON array string so the row stays
flat; everything else maps to a plain column.

All timestamps are stored and returned in UTC. Duration is stored in
milliseconds to keep the column portable across drivers.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/metrics"
)

// catalogColumns is the column list shared by every catalog query, in the
// exact order scanBackup reads them
const catalogColumns = `id, type, status, triggered_by, format, created_at,
	completed_at, duration_ms, file_path, file_size, checksum, compressed,
	compression, encrypted, record_count, baseline_id, deleted_ids,
	created_by, app_version, notes, error`

// CreateEntry implements backup.Catalog
func (db *DB) CreateEntry(ctx context.Context, b *backup.Backup) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	deletedIDs, err := encodeDeletedIDs(b.DeletedIDs)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO backup_catalog (`+catalogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.Type), string(b.Status), string(b.Trigger), string(b.Format),
		b.CreatedAt.UTC(), nullableTime(b.CompletedAt), b.Duration.Milliseconds(),
		b.FilePath, b.FileSize, b.Checksum, b.Compressed, b.Compression,
		b.Encrypted, b.RecordCount, b.BaselineID, deletedIDs,
		b.CreatedBy, b.AppVersion, b.Notes, b.Error,
	)
	metrics.RecordDBQuery("insert", "backup_catalog", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert catalog row for %s: %w", b.ID, err)
	}
	return nil
}

// UpdateEntry implements backup.Catalog
func (db *DB) UpdateEntry(ctx context.Context, b *backup.Backup) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	deletedIDs, err := encodeDeletedIDs(b.DeletedIDs)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE backup_catalog SET
			type = ?, status = ?, triggered_by = ?, format = ?,
			created_at = ?, completed_at = ?, duration_ms = ?,
			file_path = ?, file_size = ?, checksum = ?,
			compressed = ?, compression = ?, encrypted = ?,
			record_count = ?, baseline_id = ?, deleted_ids = ?,
			created_by = ?, app_version = ?, notes = ?, error = ?
		WHERE id = ?`,
		string(b.Type), string(b.Status), string(b.Trigger), string(b.Format),
		b.CreatedAt.UTC(), nullableTime(b.CompletedAt), b.Duration.Milliseconds(),
		b.FilePath, b.FileSize, b.Checksum, b.Compressed, b.Compression,
		b.Encrypted, b.RecordCount, b.BaselineID, deletedIDs,
		b.CreatedBy, b.AppVersion, b.Notes, b.Error,
		b.ID,
	)
	metrics.RecordDBQuery("update", "backup_catalog", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update catalog row for %s: %w", b.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", b.ID, err)
	}
	if affected == 0 {
		return backup.ErrBackupNotFound
	}
	return nil
}

// GetEntry implements backup.Catalog
func (db *DB) GetEntry(ctx context.Context, id string) (*backup.Backup, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM backup_catalog WHERE id = ?`, id)
	b, err := scanBackup(row)
	metrics.RecordDBQuery("select", "backup_catalog", time.Since(start), ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backup.ErrBackupNotFound
		}
		return nil, fmt.Errorf("failed to read catalog row %s: %w", id, err)
	}
	return b, nil
}

// ListEntries implements backup.Catalog
func (db *DB) ListEntries(ctx context.Context, opts backup.BackupListOptions) ([]*backup.Backup, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if opts.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.StartDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.StartDate.UTC())
	}
	if opts.EndDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, opts.EndDate.UTC())
	}

	query := `SELECT ` + catalogColumns + ` FROM backup_catalog`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.SortDesc {
		query += " ORDER BY created_at DESC, id DESC"
	} else {
		query += " ORDER BY created_at ASC, id ASC"
	}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "backup_catalog", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog rows: %w", err)
	}
	defer closeWithLog(rows, "catalog rows")

	backups := make([]*backup.Backup, 0)
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog row iteration failed: %w", err)
	}
	return backups, nil
}

// DeleteEntry implements backup.Catalog
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM backup_catalog WHERE id = ?`, id)
	metrics.RecordDBQuery("delete", "backup_catalog", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete catalog row %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for %s: %w", id, err)
	}
	if affected == 0 {
		return backup.ErrBackupNotFound
	}
	return nil
}

// LatestCompletedFull implements backup.Catalog
func (db *DB) LatestCompletedFull(ctx context.Context) (*backup.Backup, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+catalogColumns+` FROM backup_catalog
		WHERE type = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		string(backup.TypeFull), string(backup.StatusCompleted))
	b, err := scanBackup(row)
	metrics.RecordDBQuery("select", "backup_catalog", time.Since(start), ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backup.ErrNoBaseline
		}
		return nil, fmt.Errorf("failed to find latest completed full backup: %w", err)
	}
	return b, nil
}

// rowScanner matches both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBackup reads one catalog row in catalogColumns order
func scanBackup(row rowScanner) (*backup.Backup, error) {
	var (
		b           backup.Backup
		typ         string
		status      string
		trigger     string
		format      string
		createdAt   time.Time
		completedAt sql.NullTime
		durationMS  int64
		deletedIDs  string
	)

	err := row.Scan(
		&b.ID, &typ, &status, &trigger, &format, &createdAt,
		&completedAt, &durationMS, &b.FilePath, &b.FileSize, &b.Checksum,
		&b.Compressed, &b.Compression, &b.Encrypted, &b.RecordCount,
		&b.BaselineID, &deletedIDs, &b.CreatedBy, &b.AppVersion,
		&b.Notes, &b.Error,
	)
	if err != nil {
		return nil, err
	}

	b.Type = backup.BackupType(typ)
	b.Status = backup.BackupStatus(status)
	b.Trigger = backup.BackupTrigger(trigger)
	b.Format = backup.Format(format)
	b.CreatedAt = createdAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		b.CompletedAt = &t
	}
	b.Duration = time.Duration(durationMS) * time.Millisecond

	if deletedIDs != "" && deletedIDs != "[]" {
		if err := json.Unmarshal([]byte(deletedIDs), &b.DeletedIDs); err != nil {
			return nil, fmt.Errorf("corrupted deleted_ids for %s: %w", b.ID, err)
		}
	}

	return &b, nil
}

// encodeDeletedIDs stores the deleted set as a JSON array string
func encodeDeletedIDs(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode deleted IDs: %w", err)
	}
	return string(data), nil
}

// nullableTime maps a *time.Time onto a SQL NULL
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// ignoreNotFound keeps expected no-row results out of the error metrics
func ignoreNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
store.go - Inventory Record Store

The DuckDB-backed view of inventory_records that the backup engine
snapshots and restores into. Records are generic id/kind/timestamps plus a
JSON field bag; the typed medical-supply schema (lot numbers, expiry
dates, supplier contacts) lives in the upstream admin console and arrives
here already flattened.

Store implements backup.Source and backup.RestoreTarget. Restores never
touch inventory_records itself: they go to caller-named tables with the
same shape, created on demand.
*/

//nolint:staticcheck // File documentation, not package doc
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// liveTable is the production records table, owned by internal/database
const liveTable = "inventory_records"

// tableNamePattern is the only shape accepted for restore table names.
// Everything interpolated into DDL must match it; values never do.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store reads and writes inventory records over an open DuckDB pool
type Store struct {
	conn *sql.DB
}

// NewStore wraps an open database connection
func NewStore(conn *sql.DB) (*Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Store{conn: conn}, nil
}

// Snapshot implements backup.Source. Records come back ordered by ID with
// UTC timestamps, so identical data always serializes to identical bytes.
func (s *Store) Snapshot(ctx context.Context) (*backup.Snapshot, error) {
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, kind, created_at, updated_at, fields_json
		FROM inventory_records
		ORDER BY id ASC`)
	metrics.RecordDBQuery("select", liveTable, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot inventory: %w", err)
	}
	defer closeRows(rows)

	records := make([]backup.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory snapshot iteration failed: %w", err)
	}

	return &backup.Snapshot{
		TakenAt: time.Now().UTC(),
		Records: records,
	}, nil
}

// DeletedSince implements backup.Source. The admin console removes rows
// outright and keeps no deletion audit trail, so there is nothing to
// report; incremental backups cannot replay deletions from this source.
func (s *Store) DeletedSince(_ context.Context, _ time.Time) ([]string, error) {
	return []string{}, nil
}

// RestoreSnapshot implements backup.RestoreTarget. The table is created if
// missing and emptied before loading, so the result is exactly the snapshot.
func (s *Store) RestoreSnapshot(ctx context.Context, table string, records []backup.Record) (int64, error) {
	if err := validateTableName(table); err != nil {
		return 0, err
	}
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	//nolint:gosec // G201: table passed validateTableName
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return 0, fmt.Errorf("failed to clear restore table %s: %w", table, err)
	}

	written, err := insertRecords(ctx, tx, table, records)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit restore into %s: %w", table, err)
	}

	logging.Debug().
		Str("table", table).
		Int64("records", written).
		Msg("Snapshot restored")
	return written, nil
}

// ApplyChanges implements backup.RestoreTarget: upsert the changed records,
// then remove the deleted IDs. Returns rows upserted and rows actually
// deleted; IDs already absent do not count.
func (s *Store) ApplyChanges(ctx context.Context, table string, records []backup.Record, deletedIDs []string) (int64, int64, error) {
	if err := validateTableName(table); err != nil {
		return 0, 0, err
	}
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, 0, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin changes transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	upserted, err := insertRecords(ctx, tx, table, records)
	if err != nil {
		return 0, 0, err
	}

	var deleted int64
	for _, id := range deletedIDs {
		//nolint:gosec // G201: table passed validateTableName
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to delete %s from %s: %w", id, table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read delete result for %s: %w", id, err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit changes into %s: %w", table, err)
	}

	logging.Debug().
		Str("table", table).
		Int64("upserted", upserted).
		Int64("deleted", deleted).
		Msg("Incremental changes applied")
	return upserted, deleted, nil
}

// DropTable implements backup.RestoreTarget. Dropping a missing table is
// not an error; the live table is refused outright.
func (s *Store) DropTable(ctx context.Context, table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if table == liveTable {
		return fmt.Errorf("refusing to drop the live table %s", liveTable)
	}

	//nolint:gosec // G201: table passed validateTableName
	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	return nil
}

// Put upserts one record into the live table
func (s *Store) Put(ctx context.Context, rec backup.Record) error {
	fields, err := encodeFields(rec.Fields)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO inventory_records (id, kind, created_at, updated_at, fields_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			fields_json = excluded.fields_json`,
		rec.ID, rec.Kind, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), fields)
	metrics.RecordDBQuery("upsert", liveTable, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns one live record by ID
func (s *Store) Get(ctx context.Context, id string) (*backup.Record, error) {
	start := time.Now()
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, kind, created_at, updated_at, fields_json
		FROM inventory_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	recordErr := err
	if errors.Is(recordErr, sql.ErrNoRows) {
		recordErr = nil // an absent row is an answer, not a query failure
	}
	metrics.RecordDBQuery("select", liveTable, time.Since(start), recordErr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s not found", id)
		}
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return &rec, nil
}

// Delete removes one live record. The row is gone afterwards either way;
// deleting an absent ID reports false.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	res, err := s.conn.ExecContext(ctx, `DELETE FROM inventory_records WHERE id = ?`, id)
	metrics.RecordDBQuery("delete", liveTable, time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result for %s: %w", id, err)
	}
	return n > 0, nil
}

// Count returns the number of live records
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountTable returns the row count of a restore table
func (s *Store) CountTable(ctx context.Context, table string) (int64, error) {
	if err := validateTableName(table); err != nil {
		return 0, err
	}
	var count int64
	//nolint:gosec // G201: table passed validateTableName
	if err := s.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// ensureTable creates a restore table with the live schema if missing
func (s *Store) ensureTable(ctx context.Context, table string) error {
	//nolint:gosec // G201: table passed validateTableName
	_, err := s.conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			fields_json TEXT NOT NULL DEFAULT '{}'
		)`, table))
	if err != nil {
		return fmt.Errorf("failed to create restore table %s: %w", table, err)
	}
	return nil
}

// insertRecords upserts records into table inside an open transaction
func insertRecords(ctx context.Context, tx *sql.Tx, table string, records []backup.Record) (int64, error) {
	//nolint:gosec // G201: table passed validateTableName
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, kind, created_at, updated_at, fields_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			fields_json = excluded.fields_json`, table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer closeStmt(stmt)

	var written int64
	for _, rec := range records {
		fields, err := encodeFields(rec.Fields)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Kind,
			rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), fields); err != nil {
			return 0, fmt.Errorf("failed to insert record %s into %s: %w", rec.ID, table, err)
		}
		written++
	}
	return written, nil
}

// scanRecord reads one record row
func scanRecord(row interface{ Scan(...interface{}) error }) (backup.Record, error) {
	var (
		rec    backup.Record
		fields string
	)
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.CreatedAt, &rec.UpdatedAt, &fields); err != nil {
		return backup.Record{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return backup.Record{}, fmt.Errorf("corrupted fields for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// encodeFields stores the field bag as a compact JSON object string
func encodeFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

// validateTableName rejects anything that cannot be safely interpolated
// into DDL
func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// rollbackQuietly rolls back a transaction, ignoring the error returned
// after a successful commit
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback() //nolint:errcheck // No-op after commit
}

// closeRows closes a result set and logs any error
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close result rows")
	}
}

// closeStmt closes a prepared statement and logs any error
func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close prepared statement")
	}
}

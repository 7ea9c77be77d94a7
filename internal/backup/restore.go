// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
restore.go - Backup Restore

Restore rebuilds inventory records from a backup into a dedicated table,
never the live one. For a full backup that is a single snapshot load. For an
incremental it is a two-link chain: the baseline full backup is loaded
first, then the incremental payload's created and updated records are
upserted on top and its deleted IDs are removed. The payload's baseline link
must agree with the chain the catalog resolved.

Unless forced, every chain link must pass the six-stage integrity test
before a single row is written; a restore that would fail half way is
refused up front. Dry run resolves the chain, verifies it, and reports the
operations without touching the target.
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

// RestoreTableDefault is the table restores write to when none is named
const RestoreTableDefault = "inventory_records_restored"

// RestoreOptions configures how a backup is restored
type RestoreOptions struct {
	// Resolve and verify only; write nothing
	DryRun bool `json:"dry_run"`

	// Skip pre-restore integrity verification
	Force bool `json:"force"`

	// Table that receives the records (default: inventory_records_restored)
	TargetTable string `json:"target_table"`
}

// RestoreResult describes the outcome of a restore
type RestoreResult struct {
	// The backup that was restored
	BackupID string `json:"backup_id"`

	// Whether the restore completed
	Success bool `json:"success"`

	// Whether this was a dry run
	DryRun bool `json:"dry_run"`

	// Table the records went to (or would go to)
	TargetTable string `json:"target_table"`

	// Backups applied: 1 for a full, 2 for baseline plus incremental
	ChainLength int `json:"chain_length"`

	// Rows written across the chain
	RecordsRestored int64 `json:"records_restored"`

	// Rows removed by the incremental's deleted set
	DeletesApplied int64 `json:"deletes_applied"`

	// Duration of the restore
	Duration time.Duration `json:"duration_ms"`

	// Non-fatal notes, e.g. that verification was skipped
	Warnings []string `json:"warnings,omitempty"`

	// Error message if the restore failed
	Error string `json:"error,omitempty"`
}

// Restore rebuilds a backup's records into the target table
func (e *Engine) Restore(ctx context.Context, backupID string, opts RestoreOptions) (*RestoreResult, error) {
	ctx = opContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	result := &RestoreResult{
		BackupID:    backupID,
		DryRun:      opts.DryRun,
		TargetTable: opts.TargetTable,
	}
	if result.TargetTable == "" {
		result.TargetTable = RestoreTableDefault
	}

	chain, err := e.resolveRestoreChain(ctx, backupID)
	if err != nil {
		return nil, err
	}
	result.ChainLength = len(chain)

	if opts.Force {
		result.Warnings = append(result.Warnings, "integrity verification skipped")
	} else {
		for _, link := range chain {
			res, err := e.TestBackup(ctx, link.ID)
			if err != nil {
				return nil, err
			}
			if !res.Passed {
				return e.failRestore(ctx, result, start,
					fmt.Errorf("backup %s failed integrity test at stage %s; not restoring", link.ID, res.FailedStage))
			}
		}
	}

	base, err := e.loadPayload(chain[0])
	if err != nil {
		return e.failRestore(ctx, result, start, err)
	}
	var incr *IncrementalPayload
	if len(chain) == 2 {
		incr, err = e.loadIncrementalPayload(chain[1])
		if err != nil {
			return e.failRestore(ctx, result, start, err)
		}
		// The artifact's own baseline link must agree with the chain the
		// catalog resolved; a disagreement means the payload and the row
		// describe different histories.
		if incr.BaselineID != chain[0].ID {
			return e.failRestore(ctx, result, start,
				fmt.Errorf("incremental %s declares baseline %s, catalog resolved %s",
					chain[1].ID, incr.BaselineID, chain[0].ID))
		}
	}

	if opts.DryRun {
		result.RecordsRestored = int64(len(base.Records))
		if incr != nil {
			result.RecordsRestored += int64(len(incr.Created) + len(incr.Updated))
			result.DeletesApplied = int64(len(incr.Deleted))
		}
		result.Success = true
		result.Duration = e.now().Sub(start)
		logging.Ctx(ctx).Info().
			Str("backup_id", backupID).
			Int("chain_length", result.ChainLength).
			Int64("records", result.RecordsRestored).
			Msg("Restore dry run resolved")
		return result, nil
	}

	if e.target == nil {
		return nil, ErrNoRestoreTarget
	}

	written, err := e.target.RestoreSnapshot(ctx, result.TargetTable, base.Records)
	if err != nil {
		return e.failRestore(ctx, result, start, fmt.Errorf("failed to load %s: %w", chain[0].ID, err))
	}
	result.RecordsRestored = written

	if incr != nil {
		upserted, deleted, err := e.target.ApplyChanges(ctx, result.TargetTable,
			incr.ChangedRecords(), incr.Deleted)
		if err != nil {
			return e.failRestore(ctx, result, start, fmt.Errorf("failed to apply incremental %s: %w", chain[1].ID, err))
		}
		result.RecordsRestored += upserted
		result.DeletesApplied = deleted
	}

	result.Success = true
	result.Duration = e.now().Sub(start)
	metrics.RecordBackupOperation("restore", "success", result.Duration, 0, int(result.RecordsRestored))
	logging.Ctx(ctx).Info().
		Str("backup_id", backupID).
		Str("table", result.TargetTable).
		Int("chain_length", result.ChainLength).
		Int64("records", result.RecordsRestored).
		Int64("deletes", result.DeletesApplied).
		Dur("duration", result.Duration).
		Msg("Restore completed")

	return result, nil
}

// resolveRestoreChain returns the backups to apply in order: the backup
// itself for a full, baseline then incremental for an incremental
func (e *Engine) resolveRestoreChain(ctx context.Context, backupID string) ([]*Backup, error) {
	b, err := e.catalog.GetEntry(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusCompleted {
		return nil, fmt.Errorf("backup %s is %s; only completed backups are restorable", b.ID, b.Status)
	}

	if b.Type != TypeIncremental {
		return []*Backup{b}, nil
	}

	if b.BaselineID == "" {
		return nil, fmt.Errorf("incremental backup %s has no baseline recorded", b.ID)
	}
	baseline, err := e.catalog.GetEntry(ctx, b.BaselineID)
	if err != nil {
		return nil, fmt.Errorf("baseline of %s: %w", b.ID, err)
	}
	if baseline.Status != StatusCompleted {
		return nil, fmt.Errorf("baseline %s is %s; chain is not restorable", baseline.ID, baseline.Status)
	}

	return []*Backup{baseline, b}, nil
}

// readArtifact reads an artifact from disk and unseals it: decrypt, then
// decompress
func (e *Engine) readArtifact(b *Backup) ([]byte, error) {
	data, err := os.ReadFile(b.FilePath) //nolint:gosec // G304: path comes from the catalog
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact for %s: %w", b.ID, err)
	}

	if b.Encrypted {
		data, err = Decrypt(data, e.encryptionSecret())
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", b.ID, err)
		}
	}
	if b.Compressed {
		data, err = Decompress(data, b.Compression)
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", b.ID, err)
		}
	}
	return data, nil
}

// loadPayload reads a full backup's artifact and parses its snapshot
func (e *Engine) loadPayload(b *Backup) (*Snapshot, error) {
	data, err := e.readArtifact(b)
	if err != nil {
		return nil, err
	}
	snap, err := Unmarshal(b.Format, data)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", b.ID, err)
	}
	return snap, nil
}

// loadIncrementalPayload reads an incremental backup's artifact and parses
// its diff payload
func (e *Engine) loadIncrementalPayload(b *Backup) (*IncrementalPayload, error) {
	data, err := e.readArtifact(b)
	if err != nil {
		return nil, err
	}
	p, err := UnmarshalIncremental(b.Format, data)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", b.ID, err)
	}
	return p, nil
}

// failRestore records the failure on the result and in metrics
func (e *Engine) failRestore(ctx context.Context, result *RestoreResult, start time.Time, cause error) (*RestoreResult, error) {
	result.Error = cause.Error()
	result.Duration = e.now().Sub(start)
	metrics.RecordBackupOperation("restore", "failure", result.Duration, 0, 0)
	logging.Ctx(ctx).Error().Err(cause).Str("backup_id", result.BackupID).Msg("Restore failed")
	return result, cause
}

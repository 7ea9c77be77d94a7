// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
engine.go - Core Backup Engine

This file contains the engine struct and the backup creation path.

Creation Flow:
 1. Resolve the baseline for incrementals, falling back to full when no
    usable baseline exists
 2. Claim a pending catalog row before any bytes are written
 3. Snapshot the source and, for incrementals, diff against the baseline
 4. Serialize (the snapshot for fulls, a self-describing diff payload for
    incrementals), then compress and encrypt in memory
 5. Publish atomically: staging file in the temp dir, rename into place
 6. Checksum the published file by re-reading it from disk
 7. Write the metadata sidecar
 8. Flip the catalog row to completed - the commit point
 9. Optionally run the six-stage integrity test, then hand the artifact to
    the sink in the background

Failure Handling:
Any step failing after the claim marks the row failed, records the error on
it, and removes the partial artifact. The pending-then-failed row is the
audit trail of the attempt.

Thread Safety:
CreateBackup, Cleanup, Restore, and DeleteBackup serialize behind one mutex.
TestBackup does not take it, so post-create verification and pre-restore
verification can run inside those operations.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// Engine orchestrates backup, verification, retention, and restore
type Engine struct {
	cfg      *Config
	source   Source
	catalog  Catalog
	metadata *MetadataStore

	// Optional collaborators, wired after construction
	target RestoreTarget
	sink   Sink

	// Serializes mutating operations
	mu sync.Mutex

	// Clock, replaceable in tests
	now func() time.Time
}

// NewEngine creates a backup engine. The configuration is defaulted and
// validated; the backup, staging, and scratch directories are created when
// backups are enabled.
func NewEngine(cfg *Config, source Source, catalog Catalog) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}
	if source == nil {
		return nil, fmt.Errorf("backup source is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("backup catalog is required")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Enabled {
		if err := cfg.EnsureDirs(); err != nil {
			return nil, err
		}
	}

	return &Engine{
		cfg:      cfg,
		source:   source,
		catalog:  catalog,
		metadata: NewMetadataStore(cfg.BackupDir),
		now:      time.Now,
	}, nil
}

// SetSink wires in an optional replication sink. Uploads are best effort and
// never affect backup success.
func (e *Engine) SetSink(s Sink) {
	e.sink = s
}

// SetRestoreTarget wires in the store that receives restored records
func (e *Engine) SetRestoreTarget(t RestoreTarget) {
	e.target = t
}

// Metadata exposes the sidecar store, mainly for the CLI's inspection paths
func (e *Engine) Metadata() *MetadataStore {
	return e.metadata
}

// opContext tags ctx with a fresh operation ID unless the caller already
// carries one, so nested operations (post-create verification, the
// pre-restore backup) log under the outer run's ID.
func opContext(ctx context.Context) context.Context {
	if logging.OperationIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithNewOperationID(ctx)
}

// CreateBackup runs one backup of the requested type and returns its final
// catalog record. On failure the returned backup carries the failed status
// and the error message alongside the returned error.
func (e *Engine) CreateBackup(ctx context.Context, backupType BackupType, trigger BackupTrigger, notes string) (*Backup, error) {
	if !e.cfg.Enabled {
		return nil, ErrBackupsDisabled
	}
	ctx = opContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now().UTC()
	b := e.newBackupRecord(backupType, trigger, notes, start)

	// Incremental backups need a usable baseline; without one, fall back
	// to a full backup rather than fail the run.
	var since time.Time
	if b.Type == TypeIncremental {
		baseline, err := e.resolveBaseline(ctx)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("No usable baseline, falling back to full backup")
			b.Type = TypeFull
		} else {
			b.BaselineID = baseline.ID
			since = baseline.CreatedAt
		}
	}

	// Claim the attempt before any bytes exist. If this fails nothing has
	// happened yet, so there is no row to mark failed.
	if err := e.catalog.CreateEntry(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to claim catalog row: %w", err)
	}

	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		return e.fail(ctx, b, start, fmt.Errorf("snapshot failed: %w", err))
	}

	// A full backup serializes the whole snapshot. An incremental serializes
	// a self-describing diff payload: the baseline link, the change sets, and
	// the window they cover.
	var data []byte
	if b.Type == TypeIncremental {
		deleted, err := e.source.DeletedSince(ctx, since)
		if err != nil {
			return e.fail(ctx, b, start, fmt.Errorf("failed to collect deleted records: %w", err))
		}
		cs := DiffSince(snap.Records, since, deleted)
		p := &IncrementalPayload{
			BaselineID: b.BaselineID,
			From:       since,
			To:         snap.TakenAt,
			Created:    cs.Created,
			Updated:    cs.Updated,
			Deleted:    cs.Deleted,
		}
		// RecordCount counts record-bearing changes; deletions travel in
		// DeletedIDs and in the payload itself.
		b.RecordCount = int64(len(p.Created) + len(p.Updated))
		b.DeletedIDs = p.Deleted
		data, err = MarshalIncremental(b.Format, p)
		if err != nil {
			return e.fail(ctx, b, start, fmt.Errorf("serialization failed: %w", err))
		}
	} else {
		b.RecordCount = int64(len(snap.Records))
		var err error
		data, err = Marshal(b.Format, snap)
		if err != nil {
			return e.fail(ctx, b, start, fmt.Errorf("serialization failed: %w", err))
		}
	}

	data, err = e.sealArtifact(data, b)
	if err != nil {
		return e.fail(ctx, b, start, err)
	}

	b.FilePath = e.artifactPath(b, start)
	if err := writeFileAtomic(e.cfg.TempDir, b.FilePath, data); err != nil {
		return e.fail(ctx, b, start, fmt.Errorf("failed to publish artifact: %w", err))
	}

	// The checksum is taken from the published file, not the in-memory
	// buffer, so it covers exactly what a later verification will read.
	checksum, err := ChecksumFile(b.FilePath)
	if err != nil {
		return e.fail(ctx, b, start, fmt.Errorf("failed to checksum artifact: %w", err))
	}
	b.Checksum = checksum

	info, err := os.Stat(b.FilePath)
	if err != nil {
		return e.fail(ctx, b, start, fmt.Errorf("failed to stat artifact: %w", err))
	}
	b.FileSize = info.Size()

	if err := e.metadata.Write(b); err != nil {
		return e.fail(ctx, b, start, err)
	}

	// Commit point: the completed row makes the backup visible to restore
	// and retention.
	b.Status = StatusCompleted
	completedAt := e.now().UTC()
	b.CompletedAt = &completedAt
	b.Duration = completedAt.Sub(start)

	if err := e.catalog.UpdateEntry(ctx, b); err != nil {
		// The artifact and sidecar are durable; keep them and surface the
		// stuck pending row instead of deleting good bytes.
		metrics.RecordBackupOperation(string(b.Type), "failure", b.Duration, b.FileSize, int(b.RecordCount))
		return b, fmt.Errorf("backup %s published but catalog update failed: %w", b.ID, err)
	}

	// Refresh the sidecar so it reflects the completed status
	if err := e.metadata.Write(b); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to refresh metadata sidecar")
	}

	metrics.RecordBackupOperation(string(b.Type), "success", b.Duration, b.FileSize, int(b.RecordCount))
	logging.Ctx(ctx).Info().
		Str("backup_id", b.ID).
		Str("type", string(b.Type)).
		Str("format", string(b.Format)).
		Int64("records", b.RecordCount).
		Int64("size_bytes", b.FileSize).
		Dur("duration", b.Duration).
		Msg("Backup completed")

	if e.cfg.VerifyAfterCreate {
		e.verifyFreshBackup(ctx, b)
	}

	if e.sink != nil {
		go e.uploadArtifact(b)
	}

	return b, nil
}

// newBackupRecord builds the initial pending record for a backup attempt
func (e *Engine) newBackupRecord(backupType BackupType, trigger BackupTrigger, notes string, start time.Time) *Backup {
	b := &Backup{
		ID:         uuid.New().String(),
		Type:       backupType,
		Status:     StatusPending,
		Trigger:    trigger,
		Format:     e.cfg.Format,
		CreatedAt:  start,
		CreatedBy:  e.cfg.CreatedBy,
		AppVersion: AppVersion,
		Notes:      notes,
		Compressed: e.cfg.Compression.Enabled,
		Encrypted:  e.cfg.Encryption.Enabled,
	}
	if b.Compressed {
		b.Compression = e.cfg.Compression.Algorithm
	}
	return b
}

// resolveBaseline finds the completed full backup an incremental will diff
// against. The baseline must exist, be young enough, and still have both its
// artifact and a readable sidecar on disk.
func (e *Engine) resolveBaseline(ctx context.Context) (*Backup, error) {
	baseline, err := e.catalog.LatestCompletedFull(ctx)
	if err != nil {
		return nil, err
	}

	if maxAge := e.cfg.Incremental.MaxBaselineAge; maxAge > 0 {
		if age := e.now().Sub(baseline.CreatedAt); age > maxAge {
			return nil, fmt.Errorf("%w: baseline %s is %s old, max is %s",
				ErrNoBaseline, baseline.ID, age.Round(time.Minute), maxAge)
		}
	}

	if _, err := os.Stat(baseline.FilePath); err != nil {
		return nil, fmt.Errorf("%w: baseline %s artifact missing: %v", ErrNoBaseline, baseline.ID, err)
	}
	side, err := e.metadata.Read(baseline.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: baseline %s sidecar unreadable: %v", ErrNoBaseline, baseline.ID, err)
	}

	// The sidecar keeps the creation timestamp at full precision; the catalog
	// copy is truncated by column storage. The diff window anchors on the
	// sidecar value so no change at the boundary is missed or doubled.
	baseline.CreatedAt = side.CreatedAt

	return baseline, nil
}

// sealArtifact runs the in-memory pipeline on a serialized payload:
// compress, then encrypt
func (e *Engine) sealArtifact(data []byte, b *Backup) ([]byte, error) {
	var err error

	if b.Compressed {
		data, err = Compress(data, b.Compression, e.cfg.Compression.Level)
		if err != nil {
			return nil, fmt.Errorf("compression failed: %w", err)
		}
	}

	if b.Encrypted {
		data, err = Encrypt(data, e.encryptionSecret())
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}

	return data, nil
}

// encryptionSecret returns the configured secret, or the built-in default
// with a loud warning when none is configured
func (e *Engine) encryptionSecret() string {
	if e.cfg.Encryption.Key != "" {
		return e.cfg.Encryption.Key
	}
	logging.Warn().Msg("Encryption key not configured; using the built-in default key. " +
		"Artifacts are recoverable by anyone with this software - set a real key")
	return DefaultEncryptionKey
}

// artifactPath builds the published filename:
// {full|incr}_{timestamp}_{id8}.{format}[.gz|.zst][.enc]
func (e *Engine) artifactPath(b *Backup, start time.Time) string {
	prefix := "full"
	if b.Type == TypeIncremental {
		prefix = "incr"
	}
	name := fmt.Sprintf("%s_%s_%s.%s", prefix, start.Format("20060102T150405Z"), b.ID[:8], b.Format.Ext())
	if b.Compressed {
		name += compressionExt(b.Compression)
	}
	if b.Encrypted {
		name += ".enc"
	}
	return filepath.Join(e.cfg.BackupDir, name)
}

// fail marks the attempt failed, removes the partial artifact, and records
// the outcome in the catalog and sidecar
func (e *Engine) fail(ctx context.Context, b *Backup, start time.Time, cause error) (*Backup, error) {
	b.Status = StatusFailed
	b.Error = cause.Error()
	completedAt := e.now().UTC()
	b.CompletedAt = &completedAt
	b.Duration = completedAt.Sub(start)

	if b.FilePath != "" {
		if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
			logging.Ctx(ctx).Warn().Err(err).Str("path", b.FilePath).Msg("Failed to remove partial artifact")
		}
	}

	if err := e.catalog.UpdateEntry(ctx, b); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", b.ID).Msg("Failed to record backup failure in catalog")
	}
	if err := e.metadata.Write(b); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to write failure sidecar")
	}

	metrics.RecordBackupOperation(string(b.Type), "failure", b.Duration, 0, 0)
	logging.Ctx(ctx).Error().Err(cause).Str("backup_id", b.ID).Str("type", string(b.Type)).Msg("Backup failed")

	return b, cause
}

// verifyFreshBackup runs the integrity test right after creation. A failure
// here does not fail the backup; it is logged and recorded in metrics so the
// operator hears about it immediately.
func (e *Engine) verifyFreshBackup(ctx context.Context, b *Backup) {
	res, err := e.TestBackup(ctx, b.ID)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Post-create verification could not run")
	case !res.Passed:
		logging.Ctx(ctx).Error().
			Str("backup_id", b.ID).
			Str("failed_stage", res.FailedStage).
			Strs("errors", res.Errors).
			Msg("Post-create verification failed")
	default:
		logging.Ctx(ctx).Debug().Str("backup_id", b.ID).Msg("Post-create verification passed")
	}
}

// GetBackup returns a backup's catalog record
func (e *Engine) GetBackup(ctx context.Context, id string) (*Backup, error) {
	return e.catalog.GetEntry(ctx, id)
}

// ListBackups returns catalog records matching the filter options
func (e *Engine) ListBackups(ctx context.Context, opts BackupListOptions) ([]*Backup, error) {
	return e.catalog.ListEntries(ctx, opts)
}

// DeleteBackup removes one backup: artifact first, then sidecar, then
// catalog row. A completed full backup still referenced as baseline by an
// incremental is protected unless force is set.
func (e *Engine) DeleteBackup(ctx context.Context, id string, force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.catalog.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if !force && b.Type == TypeFull {
		dependents, err := e.incrementalsReferencing(ctx, id)
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			return fmt.Errorf("%w: %s is referenced by %d incremental(s), first is %s",
				ErrBaselineReferenced, id, len(dependents), dependents[0])
		}
	}

	return e.deleteBackupArtifacts(ctx, b)
}

// incrementalsReferencing lists IDs of incrementals whose baseline is the
// given full backup
func (e *Engine) incrementalsReferencing(ctx context.Context, baselineID string) ([]string, error) {
	incremental := TypeIncremental
	entries, err := e.catalog.ListEntries(ctx, BackupListOptions{Type: &incremental})
	if err != nil {
		return nil, fmt.Errorf("failed to list incrementals: %w", err)
	}

	var ids []string
	for _, b := range entries {
		if b.BaselineID == baselineID {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

// deleteBackupArtifacts removes a backup in the fixed order artifact,
// sidecar, catalog row. Stopping at the first failure leaves the catalog row
// pointing at whatever still exists.
func (e *Engine) deleteBackupArtifacts(ctx context.Context, b *Backup) error {
	if b.FilePath != "" {
		if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete artifact for %s: %w", b.ID, err)
		}
	}
	if err := e.metadata.Delete(b.ID); err != nil {
		return err
	}
	if err := e.catalog.DeleteEntry(ctx, b.ID); err != nil {
		return err
	}
	return nil
}

// writeFileAtomic writes data to a staging file in stagingDir, syncs it, and
// renames it to finalPath. The two directories must share a filesystem.
func writeFileAtomic(stagingDir, finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(stagingDir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // Write error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck // Sync error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to close staging file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o640); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to rename staging file into place: %w", err)
	}

	return nil
}

// fileExists reports whether a path exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

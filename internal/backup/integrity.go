// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
integrity.go - Six-Stage Backup Integrity Testing

TestBackup answers "could I restore this backup right now?" without touching
live data. It walks the artifact through six ordered stages:

	exists     - the artifact file is on disk
	checksum   - its bytes match the recorded SHA-256
	decrypt    - the ciphertext opens with the configured key
	decompress - the compressed stream inflates cleanly
	parse      - the payload parses and matches the recorded record count
	restore    - a trial restore into a scratch area succeeds

The first failing stage stops the walk; later stages stay false and
FailedStage names the breakage. Stages that do not apply to an artifact
(decrypt for an unencrypted backup, decompress for an uncompressed one) pass
trivially, so a result always carries all six booleans.

The parse stage is kind-aware: a full backup must carry at least one record,
an incremental must parse as a diff payload whose baseline link matches the
catalog row. Both must match the recorded record count.

A checksum failure additionally flips the catalog row to corrupted: the
artifact no longer matches what was published, and retention treats
corrupted rows as dead weight.

Trial Restore:
With a restore target wired in, stage six loads the parsed records into a
scratch table and drops it afterwards. Without one, the stage materializes
the records into a scratch file and re-parses it. Either way, scratch
artifacts are removed on success and failure alike.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// Stage names reported in results, logs, and metrics
const (
	StageExists     = "exists"
	StageChecksum   = "checksum"
	StageDecrypt    = "decrypt"
	StageDecompress = "decompress"
	StageParse      = "parse"
	StageRestore    = "restore"
)

// recordValidator checks restored records for structural sanity
var recordValidator = validator.New()

// validatedRecord wraps a record with the constraints a restorable record
// must satisfy
type validatedRecord struct {
	ID        string    `validate:"required"`
	CreatedAt time.Time `validate:"required"`
	UpdatedAt time.Time `validate:"required"`
}

// IntegrityResult is the structured outcome of one integrity test
type IntegrityResult struct {
	// The backup under test
	BackupID string `json:"backup_id"`

	// Whether all six stages passed
	Passed bool `json:"passed"`

	// Per-stage outcomes, in pipeline order
	Exists         bool `json:"exists"`
	ChecksumValid  bool `json:"checksum_valid"`
	Decryptable    bool `json:"decryptable"`
	Decompressible bool `json:"decompressible"`
	Parseable      bool `json:"parseable"`
	Restorable     bool `json:"restorable"`

	// Name of the first failing stage, empty when Passed
	FailedStage string `json:"failed_stage,omitempty"`

	// Records found in the payload (set once parse succeeds)
	RecordCount int64 `json:"record_count"`

	// Duration of the whole test
	Duration time.Duration `json:"duration_ms"`

	// Failure details, in the order they occurred
	Errors []string `json:"errors,omitempty"`

	// Non-fatal observations (e.g. catalog status flipped to corrupted)
	Warnings []string `json:"warnings,omitempty"`
}

// TestBackup runs the six-stage integrity test against a backup. Stage
// failures are reported in the result, not as an error; the error return
// covers only lookup problems.
func (e *Engine) TestBackup(ctx context.Context, backupID string) (*IntegrityResult, error) {
	ctx = opContext(ctx)

	b, err := e.catalog.GetEntry(ctx, backupID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	result := &IntegrityResult{
		BackupID: b.ID,
		Errors:   make([]string, 0),
	}

	e.runIntegrityStages(ctx, b, result)

	result.Duration = e.now().Sub(start)
	metrics.RecordIntegrityTest(result.Passed, result.FailedStage, result.Duration)

	logger := logging.CtxWith(ctx).Str("backup_id", b.ID).Logger()
	if result.Passed {
		logger.Info().
			Int64("records", result.RecordCount).
			Dur("duration", result.Duration).
			Msg("Integrity test passed")
	} else {
		logger.Warn().
			Str("failed_stage", result.FailedStage).
			Strs("errors", result.Errors).
			Msg("Integrity test failed")
	}

	return result, nil
}

// runIntegrityStages walks the six stages, returning at the first failure
//
//nolint:gocyclo // Sequential stage pipeline; splitting it would hide the order
func (e *Engine) runIntegrityStages(ctx context.Context, b *Backup, result *IntegrityResult) {
	// Stage 1: the artifact file exists
	if !fileExists(b.FilePath) {
		result.FailedStage = StageExists
		result.Errors = append(result.Errors, fmt.Sprintf("artifact missing: %s", b.FilePath))
		return
	}
	result.Exists = true

	// Stage 2: on-disk bytes match the recorded checksum
	data, err := os.ReadFile(b.FilePath)
	if err != nil {
		result.FailedStage = StageChecksum
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read artifact: %v", err))
		return
	}
	if actual := ChecksumBytes(data); actual != b.Checksum {
		result.FailedStage = StageChecksum
		result.Errors = append(result.Errors,
			fmt.Sprintf("%v: recorded %s, actual %s", ErrChecksumMismatch, b.Checksum, actual))
		e.markCorrupted(ctx, b, result)
		return
	}
	result.ChecksumValid = true

	// Stage 3: decrypt
	payload := data
	if b.Encrypted {
		payload, err = Decrypt(data, e.encryptionSecret())
		if err != nil {
			result.FailedStage = StageDecrypt
			result.Errors = append(result.Errors, err.Error())
			return
		}
	}
	result.Decryptable = true

	// Stage 4: decompress
	if b.Compressed {
		payload, err = Decompress(payload, b.Compression)
		if err != nil {
			result.FailedStage = StageDecompress
			result.Errors = append(result.Errors, err.Error())
			return
		}
	}
	result.Decompressible = true

	// Stage 5: parse, and cross-check the payload against the catalog row.
	// A full backup must carry records; an incremental must parse as a diff
	// payload whose baseline link matches the row.
	var records []Record
	if b.Type == TypeIncremental {
		p, err := UnmarshalIncremental(b.Format, payload)
		if err != nil {
			result.FailedStage = StageParse
			result.Errors = append(result.Errors, err.Error())
			return
		}
		if p.BaselineID != b.BaselineID {
			result.FailedStage = StageParse
			result.Errors = append(result.Errors,
				fmt.Sprintf("baseline mismatch: catalog says %s, payload says %s", b.BaselineID, p.BaselineID))
			return
		}
		records = p.ChangedRecords()
	} else {
		snap, err := Unmarshal(b.Format, payload)
		if err != nil {
			result.FailedStage = StageParse
			result.Errors = append(result.Errors, err.Error())
			return
		}
		if len(snap.Records) == 0 {
			result.FailedStage = StageParse
			result.Errors = append(result.Errors, "full backup payload contains no records")
			return
		}
		records = snap.Records
	}
	if got := int64(len(records)); got != b.RecordCount {
		result.FailedStage = StageParse
		result.Errors = append(result.Errors,
			fmt.Sprintf("record count mismatch: catalog says %d, payload has %d", b.RecordCount, got))
		return
	}
	result.Parseable = true
	result.RecordCount = int64(len(records))

	// Stage 6: trial restore into scratch
	if err := e.trialRestore(ctx, b, records); err != nil {
		result.FailedStage = StageRestore
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Restorable = true
	result.Passed = true
}

// markCorrupted flips the catalog row and sidecar to corrupted after a
// checksum failure. Best effort: the test result stands either way.
func (e *Engine) markCorrupted(ctx context.Context, b *Backup, result *IntegrityResult) {
	b.Status = StatusCorrupted
	if err := e.catalog.UpdateEntry(ctx, b); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to mark backup corrupted in catalog")
		return
	}
	if err := e.metadata.Write(b); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to mark backup corrupted in sidecar")
	}
	result.Warnings = append(result.Warnings, "catalog status set to corrupted")
}

// trialRestore proves the parsed records can land somewhere: a scratch table
// when a restore target is wired, a scratch file otherwise. For incrementals
// the records are the flattened change sets. Scratch state is removed on
// both paths.
func (e *Engine) trialRestore(ctx context.Context, b *Backup, records []Record) error {
	for i := range records {
		r := &records[i]
		v := validatedRecord{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
		if err := recordValidator.Struct(v); err != nil {
			return fmt.Errorf("record %d (%q) fails validation: %w", i, r.ID, err)
		}
	}

	if e.target != nil {
		return e.trialRestoreTable(ctx, b, records)
	}
	return e.trialRestoreFile(b, records)
}

// trialRestoreTable loads the records into a scratch table and drops it
func (e *Engine) trialRestoreTable(ctx context.Context, b *Backup, records []Record) error {
	table := fmt.Sprintf("_archivarius_verify_%s", b.ID[:8])
	defer func() {
		if err := e.target.DropTable(ctx, table); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("table", table).Msg("Failed to drop verification scratch table")
		}
	}()

	n, err := e.target.RestoreSnapshot(ctx, table, records)
	if err != nil {
		return fmt.Errorf("trial restore failed: %w", err)
	}
	if n != int64(len(records)) {
		return fmt.Errorf("trial restore row count mismatch: wrote %d, expected %d", n, len(records))
	}
	return nil
}

// trialRestoreFile materializes the records into a scratch file and parses
// it back. The scratch document is always snapshot-shaped; the stage proves
// the records survive a write and re-read, not the envelope.
func (e *Engine) trialRestoreFile(b *Backup, records []Record) error {
	scratch, err := os.MkdirTemp(e.cfg.ScratchDir, "archivarius-verify-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Warn().Err(err).Str("dir", scratch).Msg("Failed to remove verification scratch directory")
		}
	}()

	data, err := Marshal(b.Format, &Snapshot{TakenAt: b.CreatedAt, Records: records})
	if err != nil {
		return fmt.Errorf("trial materialization failed: %w", err)
	}

	path := filepath.Join(scratch, "restore."+b.Format.Ext())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("trial write failed: %w", err)
	}

	reread, err := os.ReadFile(path) //nolint:gosec // G304: path is inside our scratch directory
	if err != nil {
		return fmt.Errorf("trial re-read failed: %w", err)
	}
	restored, err := Unmarshal(b.Format, reread)
	if err != nil {
		return fmt.Errorf("trial re-parse failed: %w", err)
	}
	if len(restored.Records) != len(records) {
		return fmt.Errorf("trial restore row count mismatch: got %d, expected %d",
			len(restored.Records), len(records))
	}
	return nil
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// tableRecord reads one restored row back out of the mock target
func tableRecord(m *mockTarget, table, id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tables[table][id]
	return r, ok
}

// TestRestoreFullBackup tests the single-link chain into the default table
func TestRestoreFullBackup(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	result, err := eng.Restore(ctx, b.ID, RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got error %q", result.Error)
	}
	if result.TargetTable != RestoreTableDefault {
		t.Errorf("expected table %s, got %s", RestoreTableDefault, result.TargetTable)
	}
	if result.ChainLength != 1 {
		t.Errorf("expected chain length 1, got %d", result.ChainLength)
	}
	if result.RecordsRestored != 3 {
		t.Errorf("expected 3 records restored, got %d", result.RecordsRestored)
	}
	if got := env.target.rowCount(RestoreTableDefault); got != 3 {
		t.Errorf("expected 3 rows in target, got %d", got)
	}

	restored, ok := tableRecord(env.target, RestoreTableDefault, "itm-0001")
	if !ok {
		t.Fatal("expected itm-0001 in the restored table")
	}
	if !recordsEqual(restored, env.source.records[0]) {
		t.Errorf("restored record differs from source: %+v", restored)
	}
}

// TestRestoreIncrementalChain tests a two-link restore: baseline snapshot
// load, then upserts and deletes from the incremental
func TestRestoreIncrementalChain(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	t0 := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	eng.now = fixedClock(t0)

	full, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("full backup failed: %v", err)
	}

	// One update, one create, one delete since the baseline
	records := sampleRecords(t0)
	records[0].UpdatedAt = t0.Add(2 * time.Hour)
	records[0].Fields["quantity"] = "900"
	records = append(records, Record{
		ID:        "itm-0003",
		Kind:      "item",
		CreatedAt: t0.Add(1 * time.Hour),
		UpdatedAt: t0.Add(1 * time.Hour),
		Fields:    map[string]string{"name": "Saline 0.9% 500ml", "quantity": "340"},
	})
	env.source.setRecords(records)
	env.source.deleted = []string{"itm-0002"}

	eng.now = fixedClock(t0.Add(24 * time.Hour))
	incr, err := eng.CreateBackup(ctx, TypeIncremental, TriggerScheduled, "")
	if err != nil {
		t.Fatalf("incremental backup failed: %v", err)
	}
	if incr.BaselineID != full.ID {
		t.Fatalf("expected baseline %s, got %s", full.ID, incr.BaselineID)
	}

	result, err := eng.Restore(ctx, incr.ID, RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if result.ChainLength != 2 {
		t.Errorf("expected chain length 2, got %d", result.ChainLength)
	}
	// 3 baseline rows plus 2 upserts
	if result.RecordsRestored != 5 {
		t.Errorf("expected 5 records restored, got %d", result.RecordsRestored)
	}
	if result.DeletesApplied != 1 {
		t.Errorf("expected 1 delete applied, got %d", result.DeletesApplied)
	}

	// itm-0001 updated, itm-0002 deleted, itm-0003 created, sup-0001 carried
	if got := env.target.rowCount(RestoreTableDefault); got != 3 {
		t.Errorf("expected 3 rows after the chain, got %d", got)
	}
	if env.target.hasRow(RestoreTableDefault, "itm-0002") {
		t.Error("expected itm-0002 to be deleted by the incremental")
	}
	if !env.target.hasRow(RestoreTableDefault, "itm-0003") {
		t.Error("expected itm-0003 from the incremental")
	}
	updated, _ := tableRecord(env.target, RestoreTableDefault, "itm-0001")
	if updated.Fields["quantity"] != "900" {
		t.Errorf("expected the incremental version of itm-0001, got quantity %q", updated.Fields["quantity"])
	}
}

// TestRestoreDryRun tests that a dry run resolves and counts without a target
func TestRestoreDryRun(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	// No restore target wired at all
	result, err := eng.Restore(ctx, b.ID, RestoreOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !result.Success || !result.DryRun {
		t.Errorf("expected a successful dry run, got %+v", result)
	}
	if result.RecordsRestored != 3 {
		t.Errorf("expected 3 planned records, got %d", result.RecordsRestored)
	}
}

// TestRestoreRequiresTarget tests the executing path without a wired target
func TestRestoreRequiresTarget(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if _, err := eng.Restore(ctx, b.ID, RestoreOptions{}); !errors.Is(err, ErrNoRestoreTarget) {
		t.Errorf("expected ErrNoRestoreTarget, got %v", err)
	}
}

// TestRestoreRejectsNonCompleted tests that pending and failed backups are
// refused before any verification work
func TestRestoreRejectsNonCompleted(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	pending := mkBackup("pending-00001", TypeFull, StatusPending, time.Now().UTC())
	if err := env.catalog.CreateEntry(ctx, pending); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := eng.Restore(ctx, pending.ID, RestoreOptions{})
	if err == nil {
		t.Fatal("expected an error for a pending backup")
	}
	if !strings.Contains(err.Error(), "only completed backups are restorable") {
		t.Errorf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected no result, got %+v", result)
	}
}

// TestRestoreRefusesFailingChain tests that a corrupted artifact blocks the
// restore before any rows are written
func TestRestoreRefusesFailingChain(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	// Flip one byte in the middle of the artifact
	raw, err := os.ReadFile(b.FilePath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	raw[len(raw)/2] ^= 0xFF
	if err := os.WriteFile(b.FilePath, raw, 0o640); err != nil {
		t.Fatalf("failed to corrupt artifact: %v", err)
	}

	result, err := eng.Restore(ctx, b.ID, RestoreOptions{})
	if err == nil {
		t.Fatal("expected the restore to be refused")
	}
	if result == nil || !strings.Contains(result.Error, "failed integrity test") {
		t.Errorf("expected an integrity refusal on the result, got %+v", result)
	}
	if env.target.rowCount(RestoreTableDefault) != 0 {
		t.Error("expected no rows written by a refused restore")
	}
}

// TestRestoreForceSkipsVerification tests that force bypasses a failing
// integrity check when the payload itself is still readable
func TestRestoreForceSkipsVerification(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	// Tamper with the recorded checksum only; the artifact stays intact, so
	// a forced restore can still read it
	b.Checksum = strings.Repeat("0", 64)
	if err := env.catalog.UpdateEntry(ctx, b); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := eng.Restore(ctx, b.ID, RestoreOptions{Force: true})
	if err != nil {
		t.Fatalf("forced restore failed: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got error %q", result.Error)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "integrity verification skipped") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skipped-verification warning, got %v", result.Warnings)
	}
	if env.target.rowCount(RestoreTableDefault) != 3 {
		t.Errorf("expected 3 rows, got %d", env.target.rowCount(RestoreTableDefault))
	}
}

// TestRestoreForceStillChecksChain tests that even a forced restore refuses
// an incremental whose payload declares a different baseline than the
// catalog resolved
func TestRestoreForceStillChecksChain(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	t0 := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	eng.now = fixedClock(t0)
	first, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("first full backup failed: %v", err)
	}

	eng.now = fixedClock(t0.Add(time.Hour))
	if _, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, ""); err != nil {
		t.Fatalf("second full backup failed: %v", err)
	}

	records := sampleRecords(t0)
	records[0].UpdatedAt = t0.Add(2 * time.Hour)
	env.source.setRecords(records)
	eng.now = fixedClock(t0.Add(3 * time.Hour))
	incr, err := eng.CreateBackup(ctx, TypeIncremental, TriggerManual, "")
	if err != nil {
		t.Fatalf("incremental backup failed: %v", err)
	}

	// Re-point the row at the older full; the payload still declares the
	// second one
	incr.BaselineID = first.ID
	if err := env.catalog.UpdateEntry(ctx, incr); err != nil {
		t.Fatalf("failed to tamper with catalog row: %v", err)
	}

	result, err := eng.Restore(ctx, incr.ID, RestoreOptions{Force: true})
	if err == nil {
		t.Fatal("expected the chain mismatch to be refused")
	}
	if result == nil || !strings.Contains(result.Error, "declares baseline") {
		t.Errorf("expected a declared-baseline mismatch, got %+v", result)
	}
	if env.target.rowCount(RestoreTableDefault) != 0 {
		t.Error("expected no rows written by a refused restore")
	}
}

// TestRestoreIncrementalMissingBaseline tests the broken-chain error
func TestRestoreIncrementalMissingBaseline(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	t0 := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	eng.now = fixedClock(t0)
	full, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("full backup failed: %v", err)
	}

	records := sampleRecords(t0)
	records[0].UpdatedAt = t0.Add(2 * time.Hour)
	env.source.setRecords(records)
	eng.now = fixedClock(t0.Add(24 * time.Hour))
	incr, err := eng.CreateBackup(ctx, TypeIncremental, TriggerManual, "")
	if err != nil {
		t.Fatalf("incremental backup failed: %v", err)
	}

	// Drop the baseline row out from under the chain
	if err := env.catalog.DeleteEntry(ctx, full.ID); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err = eng.Restore(ctx, incr.ID, RestoreOptions{})
	if err == nil {
		t.Fatal("expected a broken-chain error")
	}
	if !strings.Contains(err.Error(), "baseline of") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestRestoreCustomTable tests that an explicit target table is honored
func TestRestoreCustomTable(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.SetRestoreTarget(env.target)
	ctx := context.Background()

	b, err := eng.CreateBackup(ctx, TypeFull, TriggerManual, "")
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	result, err := eng.Restore(ctx, b.ID, RestoreOptions{TargetTable: "inventory_audit_copy"})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if result.TargetTable != "inventory_audit_copy" {
		t.Errorf("expected the custom table on the result, got %s", result.TargetTable)
	}
	if got := env.target.rowCount("inventory_audit_copy"); got != 3 {
		t.Errorf("expected 3 rows in the custom table, got %d", got)
	}
	if env.target.rowCount(RestoreTableDefault) != 0 {
		t.Error("expected the default table to stay empty")
	}
}

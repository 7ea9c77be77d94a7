// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// retentionNow is the fixed reference time for retention tests: Sunday,
// March 15 2026
var retentionNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// mkBackup builds a catalog-only backup record for retention decisions
func mkBackup(id string, typ BackupType, status BackupStatus, created time.Time) *Backup {
	return &Backup{
		ID:        id,
		Type:      typ,
		Status:    status,
		CreatedAt: created,
		FileSize:  100,
	}
}

// TestBuildKeepReasons tests the three windows against a fixed reference
// time. Ages 1, 10, 40, and 104 days cover the daily window, a plain delete,
// and a monthly anchor.
func TestBuildKeepReasons(t *testing.T) {
	t.Parallel()

	policy := DefaultRetentionPolicy() // 30 days, 12 weeks, 12 months

	backups := []*Backup{
		// Inside the daily window
		mkBackup("daily-0000001", TypeFull, StatusCompleted, retentionNow.AddDate(0, 0, -1)),
		mkBackup("daily-0000002", TypeFull, StatusCompleted, retentionNow.AddDate(0, 0, -10)),
		// 40 days old, Tuesday Feb 3: no window covers it
		mkBackup("victim-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC)),
		// Monday Feb 2, 41 days old: weekly anchor
		mkBackup("weekly-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 2, 2, 0, 0, 0, time.UTC)),
		// Monday Dec 1 2025, 104 days old: outside the weekly window but a
		// monthly anchor
		mkBackup("monthly-00001", TypeFull, StatusCompleted, time.Date(2025, 12, 1, 2, 0, 0, 0, time.UTC)),
		// Old failed backup: anchors do not protect non-restorable backups
		mkBackup("failed-000001", TypeFull, StatusFailed, time.Date(2026, 2, 2, 2, 0, 0, 0, time.UTC)),
		// Recent failed backup: the daily window still applies
		mkBackup("failed-000002", TypeFull, StatusFailed, retentionNow.AddDate(0, 0, -1)),
		// Pending backups are never deleted, whatever their age
		mkBackup("pending-00001", TypeFull, StatusPending, retentionNow.AddDate(0, 0, -200)),
	}

	reasons := buildKeepReasons(backups, policy, retentionNow)

	wantKept := map[string]string{
		"daily-0000001": "daily window",
		"daily-0000002": "daily window",
		"weekly-000001": "weekly anchor",
		"monthly-00001": "monthly anchor",
		"failed-000002": "daily window",
		"pending-00001": "in progress",
	}
	for id, fragment := range wantKept {
		got, kept := reasons[id]
		if !kept {
			t.Errorf("expected %s to be kept", id)
			continue
		}
		if !strings.Contains(strings.Join(got, "; "), fragment) {
			t.Errorf("expected %s reason to mention %q, got %v", id, fragment, got)
		}
	}

	for _, id := range []string{"victim-000001", "failed-000001"} {
		if _, kept := reasons[id]; kept {
			t.Errorf("expected %s to be deleted, kept with %v", id, reasons[id])
		}
	}
}

// TestBuildKeepReasonsAnchorsDisabled tests that zero windows disable the
// weekly and monthly anchors
func TestBuildKeepReasonsAnchorsDisabled(t *testing.T) {
	t.Parallel()

	policy := RetentionPolicy{KeepDailyDays: 30}

	backups := []*Backup{
		mkBackup("weekly-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 2, 2, 0, 0, 0, time.UTC)),
		mkBackup("monthly-00001", TypeFull, StatusCompleted, time.Date(2025, 12, 1, 2, 0, 0, 0, time.UTC)),
	}

	reasons := buildKeepReasons(backups, policy, retentionNow)
	if len(reasons) != 0 {
		t.Errorf("expected no survivors with anchors disabled, got %v", reasons)
	}
}

// TestBuildKeepReasonsBaselinePinned tests that a kept incremental keeps its
// baseline alive even outside every window
func TestBuildKeepReasonsBaselinePinned(t *testing.T) {
	t.Parallel()

	policy := DefaultRetentionPolicy()

	base := mkBackup("base-00000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	incr := mkBackup("incr-00000001", TypeIncremental, StatusCompleted, retentionNow.AddDate(0, 0, -3))
	incr.BaselineID = base.ID

	reasons := buildKeepReasons([]*Backup{base, incr}, policy, retentionNow)

	if _, kept := reasons[incr.ID]; !kept {
		t.Fatal("expected the incremental to be kept by the daily window")
	}
	baseReasons, kept := reasons[base.ID]
	if !kept {
		t.Fatal("expected the baseline to be pinned by its incremental")
	}
	if !strings.Contains(strings.Join(baseReasons, "; "), "baseline of retained incremental") {
		t.Errorf("expected a baseline pin reason, got %v", baseReasons)
	}

	// Without the incremental the baseline falls out of retention
	reasons = buildKeepReasons([]*Backup{base}, policy, retentionNow)
	if _, kept := reasons[base.ID]; kept {
		t.Error("expected the unpinned baseline to be deleted")
	}
}

// TestBuildKeepReasonsDeletedIncrementalReleasesBaseline tests that a
// baseline is not pinned by an incremental that is itself being deleted
func TestBuildKeepReasonsDeletedIncrementalReleasesBaseline(t *testing.T) {
	t.Parallel()

	policy := DefaultRetentionPolicy()

	base := mkBackup("base-00000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	incr := mkBackup("incr-00000001", TypeIncremental, StatusCompleted, time.Date(2026, 2, 4, 2, 0, 0, 0, time.UTC))
	incr.BaselineID = base.ID

	reasons := buildKeepReasons([]*Backup{base, incr}, policy, retentionNow)
	if _, kept := reasons[incr.ID]; kept {
		t.Fatal("expected the old incremental to be deleted")
	}
	if _, kept := reasons[base.ID]; kept {
		t.Error("expected the baseline to go once its incremental does")
	}
}

// plantBackup writes an artifact file, a sidecar, and a catalog row for one
// handcrafted backup
func plantBackup(t *testing.T, env *testEnv, eng *Engine, b *Backup) {
	t.Helper()

	content := []byte("artifact " + b.ID)
	b.FilePath = filepath.Join(env.backupDir, b.ID+".json")
	b.FileSize = int64(len(content))
	if err := os.WriteFile(b.FilePath, content, 0o640); err != nil {
		t.Fatalf("failed to write artifact for %s: %v", b.ID, err)
	}
	if err := eng.Metadata().Write(b); err != nil {
		t.Fatalf("failed to write sidecar for %s: %v", b.ID, err)
	}
	if err := env.catalog.CreateEntry(context.Background(), b); err != nil {
		t.Fatalf("failed to create catalog row for %s: %v", b.ID, err)
	}
}

// TestCleanupDeletesInOrder tests an executed sweep: artifact, sidecar, and
// catalog row all gone for victims, untouched for survivors
func TestCleanupDeletesInOrder(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.now = fixedClock(retentionNow)
	ctx := context.Background()

	victim := mkBackup("victim-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	keeper := mkBackup("keeper-000001", TypeFull, StatusCompleted, retentionNow.AddDate(0, 0, -1))
	plantBackup(t, env, eng, victim)
	plantBackup(t, env, eng, keeper)

	report, err := eng.Cleanup(ctx, false)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if report.DeletedCount != 1 {
		t.Errorf("expected 1 deletion, got %d", report.DeletedCount)
	}
	if report.ReclaimedBytes != victim.FileSize {
		t.Errorf("expected %d reclaimed bytes, got %d", victim.FileSize, report.ReclaimedBytes)
	}
	if len(report.Failures) != 0 {
		t.Errorf("expected no failures, got %v", report.Failures)
	}
	if len(report.WouldDelete) != 1 || report.WouldDelete[0].ID != victim.ID {
		t.Errorf("unexpected delete preview: %+v", report.WouldDelete)
	}

	// Victim: fully gone
	if _, err := os.Stat(victim.FilePath); !os.IsNotExist(err) {
		t.Error("victim artifact still exists")
	}
	if _, err := eng.Metadata().Read(victim.ID); err == nil {
		t.Error("victim sidecar still exists")
	}
	if _, err := env.catalog.GetEntry(ctx, victim.ID); err == nil {
		t.Error("victim catalog row still exists")
	}

	// Keeper: untouched
	if _, err := os.Stat(keeper.FilePath); err != nil {
		t.Errorf("keeper artifact was touched: %v", err)
	}
	if _, err := env.catalog.GetEntry(ctx, keeper.ID); err != nil {
		t.Errorf("keeper catalog row was touched: %v", err)
	}
}

// TestCleanupDryRun tests that a dry run reports decisions without deleting
func TestCleanupDryRun(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.now = fixedClock(retentionNow)
	ctx := context.Background()

	victim := mkBackup("victim-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	plantBackup(t, env, eng, victim)

	report, err := eng.Cleanup(ctx, true)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if !report.DryRun {
		t.Error("expected dry run flag")
	}
	if report.DeletedCount != 0 || report.ReclaimedBytes != 0 {
		t.Errorf("dry run executed deletions: %+v", report)
	}
	if len(report.WouldDelete) != 1 {
		t.Errorf("expected 1 planned deletion, got %d", len(report.WouldDelete))
	}
	if len(report.WouldDelete[0].Reasons) == 0 {
		t.Error("expected a delete reason on the preview item")
	}

	if _, err := os.Stat(victim.FilePath); err != nil {
		t.Errorf("dry run touched the artifact: %v", err)
	}
	if _, err := env.catalog.GetEntry(ctx, victim.ID); err != nil {
		t.Errorf("dry run touched the catalog: %v", err)
	}
}

// TestCleanupCollectsFailures tests that a stubborn artifact is recorded as
// a failure and leaves the catalog row in place
func TestCleanupCollectsFailures(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.now = fixedClock(retentionNow)
	ctx := context.Background()

	victim := mkBackup("victim-000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	plantBackup(t, env, eng, victim)

	// Replace the artifact with a non-empty directory so os.Remove fails
	if err := os.Remove(victim.FilePath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(victim.FilePath, "occupied"), 0o750); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	report, err := eng.Cleanup(ctx, false)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failures))
	}
	if report.Failures[0].BackupID != victim.ID || report.Failures[0].Step != "artifact" {
		t.Errorf("unexpected failure record: %+v", report.Failures[0])
	}
	if report.DeletedCount != 0 {
		t.Errorf("expected no completed deletions, got %d", report.DeletedCount)
	}

	// The catalog row survives as the pointer to what remains
	if _, err := env.catalog.GetEntry(ctx, victim.ID); err != nil {
		t.Errorf("catalog row was deleted despite the failure: %v", err)
	}
	if _, err := eng.Metadata().Read(victim.ID); err != nil {
		t.Errorf("sidecar was deleted despite the artifact failure: %v", err)
	}
}

// TestCleanupKeepsPinnedBaseline tests dependency safety through the full
// sweep, not just the decision function
func TestCleanupKeepsPinnedBaseline(t *testing.T) {
	env := newTestEnv(t)
	eng := env.newTestEngine(t, nil)
	eng.now = fixedClock(retentionNow)
	ctx := context.Background()

	base := mkBackup("base-00000001", TypeFull, StatusCompleted, time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC))
	incr := mkBackup("incr-00000001", TypeIncremental, StatusCompleted, retentionNow.AddDate(0, 0, -3))
	incr.BaselineID = base.ID
	plantBackup(t, env, eng, base)
	plantBackup(t, env, eng, incr)

	report, err := eng.Cleanup(ctx, false)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if report.DeletedCount != 0 {
		t.Errorf("expected no deletions, got %d", report.DeletedCount)
	}
	if _, err := os.Stat(base.FilePath); err != nil {
		t.Errorf("pinned baseline artifact was deleted: %v", err)
	}
	if _, err := env.catalog.GetEntry(ctx, base.ID); err != nil {
		t.Errorf("pinned baseline row was deleted: %v", err)
	}
}

// TestWeekAndMonthAnchors tests the anchor predicates directly
func TestWeekAndMonthAnchors(t *testing.T) {
	t.Parallel()

	if !isWeekAnchor(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("December 1 2025 is a Monday")
	}
	if isWeekAnchor(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("March 15 2026 is a Sunday")
	}
	if !isMonthAnchor(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("the first of the month is the monthly anchor")
	}
	if isMonthAnchor(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("the second of the month is not an anchor")
	}
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"testing"
	"time"
)

// TestDiffSince tests the created and updated partitioning rules
func TestDiffSince(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := since.Add(-time.Hour)
	after := since.Add(time.Hour)

	records := []Record{
		// Created after the reference point
		{ID: "new-1", CreatedAt: after, UpdatedAt: after},
		// Created before, updated after
		{ID: "upd-1", CreatedAt: before, UpdatedAt: after},
		// Created after AND updated after: counts once, as created
		{ID: "new-2", CreatedAt: after, UpdatedAt: after.Add(time.Minute)},
		// Untouched
		{ID: "old-1", CreatedAt: before, UpdatedAt: before},
		// Boundary: exactly at the reference point is not "after"
		{ID: "edge-1", CreatedAt: since, UpdatedAt: since},
	}

	cs := DiffSince(records, since, []string{"gone-1"})

	if len(cs.Created) != 2 {
		t.Errorf("expected 2 created, got %d", len(cs.Created))
	}
	if len(cs.Updated) != 1 {
		t.Errorf("expected 1 updated, got %d", len(cs.Updated))
	}
	if cs.Updated[0].ID != "upd-1" {
		t.Errorf("expected upd-1 in updated, got %s", cs.Updated[0].ID)
	}
	if len(cs.Deleted) != 1 || cs.Deleted[0] != "gone-1" {
		t.Errorf("expected deleted IDs to pass through, got %v", cs.Deleted)
	}
	if !cs.Since.Equal(since) {
		t.Errorf("expected since %v, got %v", since, cs.Since)
	}

	// No record may land in both sets
	seen := make(map[string]int)
	for _, r := range cs.Created {
		seen[r.ID]++
	}
	for _, r := range cs.Updated {
		seen[r.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("record %s counted %d times", id, n)
		}
	}
}

// TestDiffSinceEmpty tests the diff of an unchanged store
func TestDiffSinceEmpty(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := since.Add(-time.Hour)

	cs := DiffSince([]Record{
		{ID: "old-1", CreatedAt: before, UpdatedAt: before},
	}, since, nil)

	if len(cs.Created) != 0 || len(cs.Updated) != 0 {
		t.Errorf("expected empty change set, got %d created, %d updated",
			len(cs.Created), len(cs.Updated))
	}
	if cs.Created == nil || cs.Updated == nil {
		t.Error("expected empty slices, not nil")
	}
}

// TestChangedRecordsOrder tests that flattening a payload keeps created
// before updated and preserves order inside each group
func TestChangedRecordsOrder(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := since.Add(-time.Hour)
	after := since.Add(time.Hour)

	cs := DiffSince([]Record{
		{ID: "upd-a", CreatedAt: before, UpdatedAt: after},
		{ID: "new-a", CreatedAt: after, UpdatedAt: after},
		{ID: "upd-b", CreatedAt: before, UpdatedAt: after},
		{ID: "new-b", CreatedAt: after, UpdatedAt: after},
	}, since, nil)

	p := &IncrementalPayload{Created: cs.Created, Updated: cs.Updated, Deleted: cs.Deleted}
	flat := p.ChangedRecords()
	want := []string{"new-a", "new-b", "upd-a", "upd-b"}
	if len(flat) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(flat))
	}
	for i, id := range want {
		if flat[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, flat[i].ID)
		}
	}
	if p.ChangeCount() != 4 {
		t.Errorf("expected change count 4, got %d", p.ChangeCount())
	}
}

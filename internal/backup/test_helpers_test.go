// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

// mockCatalog is an in-memory Catalog. Entries are stored as copies so a
// missing UpdateEntry call shows up as stale data instead of passing by
// accident.
type mockCatalog struct {
	mu      sync.Mutex
	entries map[string]*Backup
	order   []string

	createErr error
	updateErr error
	listErr   error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{entries: make(map[string]*Backup)}
}

func (m *mockCatalog) CreateEntry(_ context.Context, b *Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *b
	m.entries[b.ID] = &cp
	m.order = append(m.order, b.ID)
	return nil
}

func (m *mockCatalog) UpdateEntry(_ context.Context, b *Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.entries[b.ID]; !ok {
		return ErrBackupNotFound
	}
	cp := *b
	m.entries[b.ID] = &cp
	return nil
}

func (m *mockCatalog) GetEntry(_ context.Context, id string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[id]
	if !ok {
		return nil, ErrBackupNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockCatalog) ListEntries(_ context.Context, opts BackupListOptions) ([]*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	out := make([]*Backup, 0, len(m.entries))
	for _, id := range m.order {
		b := m.entries[id]
		if opts.Type != nil && b.Type != *opts.Type {
			continue
		}
		if opts.Status != nil && b.Status != *opts.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if opts.SortDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Backup{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockCatalog) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrBackupNotFound
	}
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockCatalog) LatestCompletedFull(_ context.Context) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Backup
	for _, b := range m.entries {
		if b.Type != TypeFull || b.Status != StatusCompleted {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, ErrNoBaseline
	}
	cp := *latest
	return &cp, nil
}

// mockSource serves a fixed record set
type mockSource struct {
	mu      sync.Mutex
	records []Record
	deleted []string
	snapErr error
}

func (m *mockSource) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapErr != nil {
		return nil, m.snapErr
	}
	records := make([]Record, len(m.records))
	copy(records, m.records)
	return &Snapshot{TakenAt: time.Now().UTC(), Records: records}, nil
}

func (m *mockSource) DeletedSince(_ context.Context, _ time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...), nil
}

func (m *mockSource) setRecords(records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// mockTarget collects restored records per table
type mockTarget struct {
	mu         sync.Mutex
	tables     map[string]map[string]Record
	restoreErr error
}

func newMockTarget() *mockTarget {
	return &mockTarget{tables: make(map[string]map[string]Record)}
}

func (m *mockTarget) RestoreSnapshot(_ context.Context, table string, records []Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restoreErr != nil {
		return 0, m.restoreErr
	}
	rows := make(map[string]Record, len(records))
	for _, r := range records {
		rows[r.ID] = r
	}
	m.tables[table] = rows
	return int64(len(records)), nil
}

func (m *mockTarget) ApplyChanges(_ context.Context, table string, records []Record, deletedIDs []string) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restoreErr != nil {
		return 0, 0, m.restoreErr
	}
	rows, ok := m.tables[table]
	if !ok {
		rows = make(map[string]Record)
		m.tables[table] = rows
	}
	for _, r := range records {
		rows[r.ID] = r
	}
	var deleted int64
	for _, id := range deletedIDs {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			deleted++
		}
	}
	return int64(len(records)), deleted, nil
}

func (m *mockTarget) DropTable(_ context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, table)
	return nil
}

func (m *mockTarget) rowCount(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *mockTarget) hasRow(table, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[table][id]
	return ok
}

// testEnv holds the common test environment setup
type testEnv struct {
	backupDir string
	catalog   *mockCatalog
	source    *mockSource
	target    *mockTarget
}

// newTestEnv creates a test environment with a temp backup directory and
// in-memory collaborators
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		backupDir: t.TempDir(),
		catalog:   newMockCatalog(),
		source:    &mockSource{records: sampleRecords(time.Now().UTC())},
		target:    newMockTarget(),
	}
}

// newTestConfig creates a default test configuration
func (e *testEnv) newTestConfig() *Config {
	return &Config{
		Enabled:   true,
		BackupDir: e.backupDir,
		Format:    FormatJSON,
		CreatedBy: "tester",
		Retention: DefaultRetentionPolicy(),
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: AlgorithmGzip,
			Level:     6,
		},
	}
}

// newTestEngine creates an engine from the given config, or the default one
// when cfg is nil
func (e *testEnv) newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = e.newTestConfig()
	}
	eng, err := NewEngine(cfg, e.source, e.catalog)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

// sampleRecords returns a small inventory slice with values that exercise
// quoting in every format
func sampleRecords(base time.Time) []Record {
	base = base.UTC().Truncate(time.Second)
	return []Record{
		{
			ID:        "itm-0001",
			Kind:      "item",
			CreatedAt: base.Add(-48 * time.Hour),
			UpdatedAt: base.Add(-24 * time.Hour),
			Fields: map[string]string{
				"name":     "Nitrile Gloves M",
				"quantity": "1200",
				"unit":     "box",
			},
		},
		{
			ID:        "itm-0002",
			Kind:      "item",
			CreatedAt: base.Add(-36 * time.Hour),
			UpdatedAt: base.Add(-12 * time.Hour),
			Fields: map[string]string{
				"name":    "Gauze Pads 4x4",
				"lot":     "L-2231",
				"expires": "2027-05-31",
			},
		},
		{
			ID:        "sup-0001",
			Kind:      "supplier",
			CreatedAt: base.Add(-72 * time.Hour),
			UpdatedAt: base.Add(-72 * time.Hour),
			Fields: map[string]string{
				"name":  "O'Neill Medical Supply, Inc.",
				"phone": "+1-555-0142",
				"note":  `rep said "call before noon"`,
			},
		},
	}
}

// fixedClock returns a clock function pinned to t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// recordsEqual compares two records field by field, treating timestamps as
// instants
func recordsEqual(a, b Record) bool {
	if a.ID != b.ID || a.Kind != b.Kind {
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for k, v := range a.Fields {
		if b.Fields[k] != v {
			return false
		}
	}
	return true
}

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/medistock/archivarius/internal/backup"
	"github.com/medistock/archivarius/internal/logging"
)

// SeedDemo loads a small medical-supply fixture set into the live table.
// IDs are fixed and Put upserts, so seeding twice is harmless. Used by the
// seed command and by tests that want data to back up.
func SeedDemo(ctx context.Context, store *Store) (int, error) {
	now := time.Now().UTC().Truncate(time.Second)
	records := DemoRecords(now)

	for _, rec := range records {
		if err := store.Put(ctx, rec); err != nil {
			return 0, fmt.Errorf("failed to seed %s: %w", rec.ID, err)
		}
	}

	logging.Info().Int("records", len(records)).Msg("Demo inventory seeded")
	return len(records), nil
}

// DemoRecords returns the fixture set with timestamps spread over the two
// weeks before base, so incremental backups have something to diff against
func DemoRecords(base time.Time) []backup.Record {
	at := func(daysAgo int) time.Time { return base.AddDate(0, 0, -daysAgo) }

	return []backup.Record{
		{
			ID: "itm-0001", Kind: "item", CreatedAt: at(14), UpdatedAt: at(2),
			Fields: map[string]string{
				"name": "Nitrile Gloves M", "sku": "GLV-NIT-M",
				"quantity": "1200", "unit": "box", "reorder_at": "200",
			},
		},
		{
			ID: "itm-0002", Kind: "item", CreatedAt: at(14), UpdatedAt: at(6),
			Fields: map[string]string{
				"name": "Gauze Pads 4x4", "sku": "GZE-4X4",
				"quantity": "860", "unit": "pack", "lot": "L-2231",
				"expires_at": "2027-05-31",
			},
		},
		{
			ID: "itm-0003", Kind: "item", CreatedAt: at(10), UpdatedAt: at(1),
			Fields: map[string]string{
				"name": "Saline 0.9% 500ml", "sku": "SAL-09-500",
				"quantity": "340", "unit": "bag", "lot": "L-2307",
				"expires_at": "2026-11-30",
			},
		},
		{
			ID: "itm-0004", Kind: "item", CreatedAt: at(9), UpdatedAt: at(9),
			Fields: map[string]string{
				"name": "Syringe 5ml Luer-Lock", "sku": "SYR-5ML",
				"quantity": "2500", "unit": "piece",
			},
		},
		{
			ID: "itm-0005", Kind: "item", CreatedAt: at(3), UpdatedAt: at(1),
			Fields: map[string]string{
				"name": "Surgical Masks Type IIR", "sku": "MSK-IIR",
				"quantity": "4800", "unit": "box", "reorder_at": "500",
			},
		},
		{
			ID: "sup-0001", Kind: "supplier", CreatedAt: at(14), UpdatedAt: at(14),
			Fields: map[string]string{
				"name": "O'Neill Medical Supply, Inc.", "phone": "+1-555-0142",
				"note": `rep said "call before noon"`,
			},
		},
		{
			ID: "sup-0002", Kind: "supplier", CreatedAt: at(12), UpdatedAt: at(4),
			Fields: map[string]string{
				"name": "Baltic Surgical GmbH", "phone": "+49-555-0108",
				"currency": "EUR",
			},
		},
		{
			ID: "loc-0001", Kind: "location", CreatedAt: at(14), UpdatedAt: at(14),
			Fields: map[string]string{
				"name": "Central Warehouse", "aisle_count": "18",
			},
		},
		{
			ID: "loc-0002", Kind: "location", CreatedAt: at(8), UpdatedAt: at(8),
			Fields: map[string]string{
				"name": "Cold Storage B", "temperature_c": "4",
			},
		},
	}
}

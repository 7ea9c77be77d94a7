// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import "time"

// DiffSince partitions a snapshot's records into those created and those
// updated strictly after the reference point.
//
// A record is "created" when CreatedAt > since. It is "updated" when
// UpdatedAt > since and CreatedAt <= since, so a record created and then
// edited inside the window counts once, as created. Records untouched since
// the reference point appear in neither set.
//
// The deleted IDs are passed through from the source; the engine does not
// compute them. They stay empty until the inventory store grows a deletion
// audit trail.
func DiffSince(records []Record, since time.Time, deleted []string) *ChangeSet {
	cs := &ChangeSet{
		Since:   since,
		Created: make([]Record, 0),
		Updated: make([]Record, 0),
		Deleted: deleted,
	}

	for _, r := range records {
		switch {
		case r.CreatedAt.After(since):
			cs.Created = append(cs.Created, r)
		case r.UpdatedAt.After(since):
			cs.Updated = append(cs.Updated, r)
		}
	}

	return cs
}

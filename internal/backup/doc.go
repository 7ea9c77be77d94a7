// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

// Package backup implements the Archivarius backup engine: snapshot capture,
// serialization, compression, encryption, integrity testing, retention, and
// restore for the MediStock inventory store.
//
// # Overview
//
// The engine turns a snapshot of inventory records into a single self-contained
// artifact on disk, plus a metadata sidecar and a catalog row:
//
//	serialize -> compress -> encrypt -> publish -> checksum -> sidecar -> catalog
//
// Features:
//   - Full and incremental backup types
//   - Three artifact formats: json, csv, sql (exact round trip for each)
//   - GZIP and ZSTD compression with configurable level
//   - AES-256-GCM encryption with HKDF-derived keys
//   - SHA-256 checksum of the final on-disk bytes
//   - Six-stage integrity testing with short-circuit semantics
//   - Calendar-anchored retention that never strands an incremental
//   - Best-effort replication to an off-box sink
//
// # Artifact Pipeline
//
// Every artifact is built in memory and published atomically: bytes are
// written to a staging file in the temp directory and renamed into the backup
// directory, so a reader never observes a partially written artifact. The
// checksum is computed by re-reading the published file, which makes it a
// digest of exactly the bytes a later verification will see.
//
// # Durability Model
//
// Three records describe each backup, written in a fixed order:
//
//  1. Catalog row (pending) - claims the attempt before any bytes exist
//  2. Artifact + metadata sidecar - the restorable payload and its descriptor
//  3. Catalog row (completed) - the commit point
//
// The sidecar duplicates the catalog row on purpose: it lives next to the
// artifact and survives loss of the catalog database, so a directory of
// artifacts and sidecars is restorable on its own.
//
// # Incremental Backups
//
// An incremental backup captures records created or updated strictly after
// its baseline, the most recent completed full backup. Records created after
// the baseline are "created"; records updated after the baseline but created
// at or before it are "updated"; no record appears in both sets. The artifact
// payload is self-describing: it embeds the baseline ID, the three change
// sets, and the window they cover, so a chain is replayable from artifacts
// and sidecars alone. Deleted record IDs would require an audit trail the
// inventory store does not keep, so the live source reports none today; the
// payload carries the set and restore applies it regardless. Without a usable
// baseline the engine falls back to a full backup and says so in the log.
//
// # Integrity Testing
//
// TestBackup walks six ordered stages, stopping at the first failure:
//
//	exists -> checksum -> decrypt -> decompress -> parse -> restore
//
// Each stage reports its own boolean in the result, so an operator can see
// not just that a backup is bad but exactly which layer broke. Scratch
// artifacts produced during the trial restore are removed on success and
// failure alike.
//
// # Retention
//
// Cleanup keeps every backup inside the daily window, plus older backups that
// sit on a calendar anchor: Mondays within the weekly window and the first of
// the month within the monthly window. A full backup referenced as baseline
// by any retained incremental is kept regardless, so a kept incremental can
// always be restored. Deletion removes the artifact first, then the sidecar,
// then the catalog row; a failure mid-sequence leaves the row behind as
// evidence rather than orphaning bytes silently.
//
// # Usage
//
//	eng, err := backup.NewEngine(cfg, source, catalog)
//	if err != nil {
//		logging.Fatal().Err(err).Msg("engine init failed")
//	}
//	eng.SetRestoreTarget(target)
//
//	b, err := eng.CreateBackup(ctx, backup.TypeFull, backup.TriggerManual, "nightly")
//	res, err := eng.TestBackup(ctx, b.ID)
//	report, err := eng.Cleanup(ctx, false)
//
// The engine serializes CreateBackup, Cleanup, and Restore behind a single
// mutex: concurrent invocations queue rather than interleave, which keeps the
// catalog-claim and publish steps simple.
package backup

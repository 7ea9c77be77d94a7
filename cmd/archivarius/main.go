// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

// Package main is the entry point for the archivarius command line tool.
//
// Archivarius protects the MediStock inventory database: it captures full
// and incremental backups of the inventory records, verifies them with a
// six-stage integrity test, applies tiered retention, and restores any
// completed backup into a side table for inspection or recovery.
//
// # Commands
//
// Every operation is a subcommand of a single binary so cron lines stay
// one-liners:
//
//	archivarius create [--incremental] [--format json|csv|sql]
//	archivarius test <backup-id>
//	archivarius list [--type] [--status] [--limit N]
//	archivarius stats
//	archivarius cleanup [--dry-run]
//	archivarius restore <backup-id> [--dry-run] [--force] [--table NAME]
//	archivarius delete <backup-id> [--force]
//	archivarius verify
//	archivarius seed
//
// All commands accept --output json for machine-readable results and
// --config for an explicit configuration file.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (ARCHIVARIUS_*, see internal/config)
//   - Config file (--config flag, CONFIG_PATH, or ./config.yaml)
//   - Built-in defaults
//
// # Exit Codes
//
// The binary is non-interactive and safe to run from cron:
//
//	0  the operation succeeded
//	1  the operation ran and failed (backup error, failed integrity
//	   test, unhealthy setup, restore failure)
//	2  the invocation was wrong (unknown flag, bad config)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the command context. In-flight work stops at
// the next stage boundary; a backup interrupted mid-write is marked
// failed in the catalog and its staging file is removed.
package main

import "os"

func main() {
	os.Exit(execute())
}

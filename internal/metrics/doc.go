// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

// Package metrics provides Prometheus instrumentation for the backup
// engine.
//
// Collectors are registered with the default registry via promauto at
// package load. Engine components call the Record* helpers; the CLI pushes
// the accumulated samples to a Pushgateway at the end of each run when
// metrics.pushgateway_url is configured (see Push).
//
// Metric families:
//
//   - backup_operations_total{type,status} - backup creations by outcome
//   - backup_duration_seconds{type} - end-to-end backup duration
//   - backup_size_bytes{type} - finished artifact sizes
//   - backup_records_processed_total - records written to artifacts
//   - backup_last_success_timestamp{type} - last successful run per type
//   - integrity_tests_total{result} - integrity test outcomes
//   - integrity_stage_failures_total{stage} - first failing stage
//   - integrity_test_duration_seconds - test run duration
//   - retention_deleted_total - backups removed by cleanup
//   - retention_reclaimed_bytes_total - bytes reclaimed by cleanup
//   - retention_delete_failures_total - per-item deletion failures
//   - retention_last_run_timestamp - last cleanup run
//   - sink_uploads_total{status} - sink upload attempts
//   - sink_upload_duration_seconds - upload duration
//   - sink_circuit_breaker_state{name} - breaker state gauge
//   - duckdb_query_duration_seconds{operation,table} - catalog queries
//   - duckdb_query_errors_total{operation,table} - catalog query errors
package metrics

// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the backup engine:
// - Backup creation (count, duration, size, records)
// - Integrity testing (results, failing stage)
// - Retention runs (deletions, reclaimed bytes, per-item failures)
// - Sink uploads and circuit breaker state
// - Catalog (DuckDB) query performance

var (
	// Backup Operation Metrics
	BackupOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_operations_total",
			Help: "Total number of backup operations by type and outcome",
		},
		[]string{"type", "status"}, // type: "full", "incremental", "restore"; status: "success", "failure"
	)

	BackupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Duration of backup operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600}, // Backups can take minutes
		},
		[]string{"type"},
	)

	BackupSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_size_bytes",
			Help:    "Size of finished backup artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. ~256GiB
		},
		[]string{"type"},
	)

	BackupRecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_records_processed_total",
			Help: "Total number of records written into backup artifacts",
		},
	)

	BackupLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful backup per type",
		},
		[]string{"type"},
	)

	// Integrity Tester Metrics
	IntegrityTestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_tests_total",
			Help: "Total number of integrity test runs",
		},
		[]string{"result"}, // "pass", "fail"
	)

	IntegrityStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_stage_failures_total",
			Help: "Total number of integrity test failures by first failing stage",
		},
		[]string{"stage"}, // "exists", "checksum", "decrypt", "decompress", "parse", "restore"
	)

	IntegrityTestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "integrity_test_duration_seconds",
			Help:    "Duration of integrity test runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Retention Metrics
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Total number of backups deleted by retention cleanup",
		},
	)

	RetentionReclaimedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_reclaimed_bytes_total",
			Help: "Total bytes reclaimed by retention cleanup",
		},
	)

	RetentionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_delete_failures_total",
			Help: "Total number of per-backup deletion failures during cleanup",
		},
	)

	RetentionLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retention_last_run_timestamp",
			Help: "Unix timestamp of the last retention cleanup run",
		},
	)

	// Sink Metrics
	SinkUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_uploads_total",
			Help: "Total number of sink upload attempts",
		},
		[]string{"status"}, // "success", "failure", "rejected"
	)

	SinkUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sink_upload_duration_seconds",
			Help:    "Duration of sink uploads in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	SinkBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sink_circuit_breaker_state",
			Help: "Sink circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Catalog (DuckDB) Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordBackupOperation records the outcome of a backup or restore
// operation. Size, record, and last-success samples are only taken from
// successful runs.
func RecordBackupOperation(backupType, status string, duration time.Duration, sizeBytes int64, records int) {
	BackupOperationsTotal.WithLabelValues(backupType, status).Inc()
	BackupDuration.WithLabelValues(backupType).Observe(duration.Seconds())
	if status == "success" {
		BackupSizeBytes.WithLabelValues(backupType).Observe(float64(sizeBytes))
		BackupRecordsProcessed.Add(float64(records))
		BackupLastSuccess.WithLabelValues(backupType).Set(float64(time.Now().Unix()))
	}
}

// RecordIntegrityTest records an integrity test run. failedStage is the
// first failing stage, empty on success.
func RecordIntegrityTest(passed bool, failedStage string, duration time.Duration) {
	result := "pass"
	if !passed {
		result = "fail"
		if failedStage != "" {
			IntegrityStageFailures.WithLabelValues(failedStage).Inc()
		}
	}
	IntegrityTestsTotal.WithLabelValues(result).Inc()
	IntegrityTestDuration.Observe(duration.Seconds())
}

// RecordRetentionRun records the outcome of a retention cleanup run.
func RecordRetentionRun(deleted int, reclaimedBytes int64, failures int) {
	RetentionDeletedTotal.Add(float64(deleted))
	RetentionReclaimedBytes.Add(float64(reclaimedBytes))
	RetentionFailures.Add(float64(failures))
	RetentionLastRun.Set(float64(time.Now().Unix()))
}

// RecordSinkUpload records a sink upload attempt. status is "success",
// "failure", or "rejected" (breaker open).
func RecordSinkUpload(status string, duration time.Duration) {
	SinkUploadsTotal.WithLabelValues(status).Inc()
	if status != "rejected" {
		SinkUploadDuration.Observe(duration.Seconds())
	}
}

// SetSinkBreakerState publishes the sink circuit breaker state.
func SetSinkBreakerState(name string, state float64) {
	SinkBreakerState.WithLabelValues(name).Set(state)
}

// RecordDBQuery records a catalog query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

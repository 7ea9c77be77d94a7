// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
sink.go - Best-Effort Artifact Replication

A sink receives a copy of every published artifact and its sidecar. Upload
runs in the background after the backup is locally durable and committed;
sink failures are logged and counted but never fail the backup. Losing the
replica costs redundancy, not the backup.

ResilientSink wraps any sink with a circuit breaker and optional bandwidth
pacing. The breaker opens after a run of consecutive failures so a dead
destination is skipped cheaply instead of timing out on every backup, and
recovers by itself after the reset timeout. Pacing throttles the read side
so replication cannot starve whatever else shares the uplink.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/medistock/archivarius/internal/logging"
	"github.com/medistock/archivarius/internal/metrics"
)

// sinkUploadTimeout bounds one background upload
const sinkUploadTimeout = 10 * time.Minute

// Sink is a destination for artifact replicas
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string

	// Upload stores size bytes from r under the given name
	Upload(ctx context.Context, r io.Reader, name string, size int64) error
}

// LocalDirSink copies artifacts into a directory, typically a mounted
// remote filesystem
type LocalDirSink struct {
	dir string
}

// NewLocalDirSink creates the destination directory if needed
func NewLocalDirSink(dir string) (*LocalDirSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create sink directory %s: %w", dir, err)
	}
	return &LocalDirSink{dir: dir}, nil
}

// Name implements Sink
func (s *LocalDirSink) Name() string { return "local-dir" }

// Upload writes the replica via a temp file and rename, so the destination
// never shows a partial copy
func (s *LocalDirSink) Upload(ctx context.Context, r io.Reader, name string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create sink temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()        //nolint:errcheck // Copy error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to copy to sink: %w", err)
	}
	if size >= 0 && written != size {
		tmp.Close()        //nolint:errcheck // Short copy takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("short copy to sink: wrote %d of %d bytes", written, size)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck // Sync error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to sync sink file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to close sink file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to publish sink file: %w", err)
	}
	return nil
}

// ResilientSinkConfig tunes the decorator
type ResilientSinkConfig struct {
	// Consecutive failures before the breaker opens (default 3)
	FailureThreshold uint32

	// How long the breaker stays open before probing again (default 60s)
	ResetTimeout time.Duration

	// Upload throttle in bytes per second; 0 means unpaced
	MaxBytesPerSec int64
}

// ResilientSink decorates a sink with a circuit breaker and bandwidth pacing
type ResilientSink struct {
	inner   Sink
	breaker *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter
}

// NewResilientSink wraps inner with failure isolation
func NewResilientSink(inner Sink, cfg ResilientSinkConfig) *ResilientSink {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	timeout := cfg.ResetTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	// State changes arrive on gobreaker's goroutines, outside any
	// operation context, so they log through a component logger instead.
	sinkLog := logging.WithComponent("sink")
	settings := gobreaker.Settings{
		Name:        "sink-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			sinkLog.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Sink circuit breaker state changed")
			metrics.SetSinkBreakerState(name, breakerStateValue(to))
		},
	}

	var limiter *rate.Limiter
	if cfg.MaxBytesPerSec > 0 {
		// Burst covers one second of traffic but never less than one copy
		// chunk, or WaitN would refuse the request outright.
		burst := int(cfg.MaxBytesPerSec)
		if burst < pacedChunkSize {
			burst = pacedChunkSize
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxBytesPerSec), burst)
	}

	return &ResilientSink{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
		limiter: limiter,
	}
}

// Name implements Sink
func (s *ResilientSink) Name() string { return s.inner.Name() }

// Upload implements Sink, adding breaker and pacing semantics
func (s *ResilientSink) Upload(ctx context.Context, r io.Reader, name string, size int64) error {
	start := time.Now()

	if s.limiter != nil {
		r = &pacedReader{ctx: ctx, r: r, limiter: s.limiter}
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.inner.Upload(ctx, r, name, size)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordSinkUpload("rejected", time.Since(start))
		return fmt.Errorf("sink upload rejected by circuit breaker: %w", err)
	case err != nil:
		metrics.RecordSinkUpload("failure", time.Since(start))
		return err
	}

	metrics.RecordSinkUpload("success", time.Since(start))
	return nil
}

// breakerStateValue maps breaker states onto the gauge: closed 0, half-open
// 1, open 2
func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// pacedChunkSize is the largest single read the paced reader permits
const pacedChunkSize = 32 * 1024

// pacedReader throttles reads through a token-bucket limiter
type pacedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (p *pacedReader) Read(buf []byte) (int, error) {
	if len(buf) > pacedChunkSize {
		buf = buf[:pacedChunkSize]
	}
	n, err := p.r.Read(buf)
	if n > 0 {
		if werr := p.limiter.WaitN(p.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// uploadArtifact replicates a published artifact and its sidecar in the
// background. Called in its own goroutine; failures are logged, never
// returned.
func (e *Engine) uploadArtifact(b *Backup) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkUploadTimeout)
	defer cancel()

	if err := e.uploadFile(ctx, b.FilePath, b.FileSize); err != nil {
		logging.Warn().Err(err).
			Str("backup_id", b.ID).
			Str("sink", e.sink.Name()).
			Msg("Sink upload failed; backup remains locally durable")
		return
	}

	// The sidecar makes the replica self-describing. Best effort too.
	sidecar := e.metadata.Path(b.ID)
	if info, err := os.Stat(sidecar); err == nil {
		if err := e.uploadFile(ctx, sidecar, info.Size()); err != nil {
			logging.Warn().Err(err).Str("backup_id", b.ID).Msg("Sidecar replication failed")
		}
	}

	logging.Info().
		Str("backup_id", b.ID).
		Str("sink", e.sink.Name()).
		Msg("Artifact replicated to sink")
}

// uploadFile streams one local file into the sink under its base name
func (e *Engine) uploadFile(ctx context.Context, path string, size int64) error {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from internal backup storage
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	return e.sink.Upload(ctx, f, filepath.Base(path), size)
}

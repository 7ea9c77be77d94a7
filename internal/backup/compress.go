// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Supported compression algorithms
const (
	AlgorithmGzip = "gzip"
	AlgorithmZstd = "zstd"
)

// compressionExt maps an algorithm to its artifact filename suffix
func compressionExt(algorithm string) string {
	switch algorithm {
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmZstd:
		return ".zst"
	default:
		return ""
	}
}

// Compress compresses data with the given algorithm and level (1 fastest to
// 9 smallest). An empty input yields a valid empty stream that Decompress
// round-trips.
func Compress(data []byte, algorithm string, level int) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return compressGzip(data, level)
	case AlgorithmZstd:
		return compressZstd(data, level)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Decompress reverses Compress for the given algorithm
func Decompress(data []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return decompressGzip(data)
	case AlgorithmZstd:
		return decompressZstd(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

func compressGzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip stream: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		r.Close() //nolint:errcheck // Read error takes precedence
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("gzip stream is truncated or corrupted: %w", err)
	}
	return out, nil
}

func compressZstd(data []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	out := enc.EncodeAll(data, make([]byte, 0, len(data)))
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd encoder: %w", err)
	}
	return out, nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}

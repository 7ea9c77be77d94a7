// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
metadata.go - Per-Backup Metadata Sidecars

Each backup gets its own JSON sidecar, <id>.meta.json, next to the artifact.
Sidecars are deliberately independent of the catalog database: a directory
of artifacts plus sidecars is a complete, restorable record even if the
catalog is lost, and a corrupted sidecar damages exactly one backup's
metadata instead of all of it.

Writes are atomic: the document goes to a temp file in the same directory,
is fsynced, and is renamed over the final path. A crash mid-write leaves
either the old sidecar or the new one, never a torn file.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/medistock/archivarius/internal/logging"
)

// metadataSuffix is appended to the backup ID to form the sidecar filename
const metadataSuffix = ".meta.json"

// MetadataStore reads and writes per-backup metadata sidecars in a single
// directory
type MetadataStore struct {
	dir string
}

// NewMetadataStore returns a store rooted at dir. The directory must already
// exist.
func NewMetadataStore(dir string) *MetadataStore {
	return &MetadataStore{dir: dir}
}

// Path returns the sidecar path for a backup ID
func (s *MetadataStore) Path(id string) string {
	return filepath.Join(s.dir, id+metadataSuffix)
}

// validateID rejects IDs that could escape the sidecar directory
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("backup ID is empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid backup ID: %q", id)
	}
	return nil
}

// Write persists a backup's metadata sidecar atomically
func (s *MetadataStore) Write(b *Backup) error {
	if err := validateID(b.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", b.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".meta-*")
	if err != nil {
		return fmt.Errorf("failed to create metadata temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // Write error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to write metadata for %s: %w", b.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck // Sync error takes precedence
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to sync metadata for %s: %w", b.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to close metadata temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to set metadata permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(b.ID)); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to publish metadata for %s: %w", b.ID, err)
	}

	return nil
}

// Read loads a backup's metadata sidecar
func (s *MetadataStore) Read(id string) (*Backup, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata for %s: %w", id, err)
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("metadata sidecar for %s is corrupted: %w", id, err)
	}
	return &b, nil
}

// Delete removes a backup's sidecar. A missing sidecar is not an error.
func (s *MetadataStore) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata for %s: %w", id, err)
	}
	return nil
}

// List loads every readable sidecar in the directory. Unreadable sidecars
// are logged and skipped so one corrupted file does not hide the rest.
func (s *MetadataStore) List() ([]*Backup, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+metadataSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata directory: %w", err)
	}

	backups := make([]*Backup, 0, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(filepath.Base(path), metadataSuffix)
		b, err := s.Read(id)
		if err != nil {
			logging.Warn().Err(err).Str("sidecar", path).Msg("Skipping unreadable metadata sidecar")
			continue
		}
		backups = append(backups, b)
	}
	return backups, nil
}

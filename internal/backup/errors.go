// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package backup

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// wrapped messages carry the specifics.
var (
	// ErrBackupNotFound is returned when a backup ID has no catalog row
	ErrBackupNotFound = errors.New("backup not found")

	// ErrMetadataNotFound is returned when a backup has no metadata
	// sidecar. Distinct from ErrBackupNotFound: the catalog row may exist
	// while the sidecar is gone, and callers treat the two differently.
	ErrMetadataNotFound = errors.New("backup metadata sidecar not found")

	// ErrUnsupportedFormat is returned for serialization formats the engine
	// does not know
	ErrUnsupportedFormat = errors.New("unsupported backup format")

	// ErrUnsupportedAlgorithm is returned for unknown compression algorithms
	ErrUnsupportedAlgorithm = errors.New("unsupported compression algorithm")

	// ErrDecryptFailed is returned when an artifact cannot be decrypted,
	// which almost always means the wrong key
	ErrDecryptFailed = errors.New("decryption failed: wrong key or corrupted data")

	// ErrCiphertextTooShort is returned when encrypted data is shorter than
	// the nonce that must prefix it
	ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")

	// ErrChecksumMismatch is returned when on-disk bytes no longer match the
	// recorded checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNoBaseline is returned when an incremental backup is requested but
	// no usable completed full backup exists
	ErrNoBaseline = errors.New("no usable baseline full backup")

	// ErrNoRestoreTarget is returned when a restore is requested but no
	// target store is wired in
	ErrNoRestoreTarget = errors.New("no restore target configured")

	// ErrBackupsDisabled is returned when the engine is invoked while
	// disabled in configuration
	ErrBackupsDisabled = errors.New("backups are disabled")

	// ErrBaselineReferenced is returned when deleting a full backup that a
	// remaining incremental still depends on
	ErrBaselineReferenced = errors.New("backup is the baseline of an existing incremental")
)

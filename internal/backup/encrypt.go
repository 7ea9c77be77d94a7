// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
encrypt.go - Artifact Encryption

AES-256-GCM with a key derived from the configured secret via HKDF-SHA256.
The wire layout is nonce || ciphertext with the GCM tag appended by Seal, so
an encrypted artifact is self-contained: nothing beyond the secret is needed
to decrypt it.

GCM authenticates as well as encrypts. Decrypting with the wrong secret, or
decrypting bytes that were modified after encryption, fails with
ErrDecryptFailed rather than yielding garbage.

Key Handling:
When encryption is enabled without a configured secret, the engine derives
the key from DefaultEncryptionKey. That constant ships in the source and in
every binary, so it protects against nothing but casual inspection. The
engine logs an operational-risk warning on every use; deployments are
expected to configure a real secret.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinKeyLength is the minimum length of an explicitly configured encryption
// secret
const MinKeyLength = 32

// DefaultEncryptionKey is the fallback secret used when encryption is
// enabled without a configured key. It is public by definition; artifacts
// encrypted with it are recoverable by anyone holding this source.
const DefaultEncryptionKey = "archivarius-default-key-change-me-in-production"

// HKDF parameters. Changing either breaks decryption of existing artifacts.
const (
	keyDerivationSalt = "archivarius-backup-artifacts"
	keyDerivationInfo = "backup-encryption-v1"
)

// derivedKeySize is the AES-256 key length in bytes
const derivedKeySize = 32

// deriveKey stretches the configured secret into an AES-256 key
func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), []byte(keyDerivationSalt), []byte(keyDerivationInfo))
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// newGCM builds the AEAD for the given secret
func newGCM(secret string) (cipher.AEAD, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext with a key derived from secret. The random nonce
// is prepended to the ciphertext.
func Encrypt(plaintext []byte, secret string) ([]byte, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt. A wrong secret or tampered ciphertext returns
// ErrDecryptFailed.
func Decrypt(data []byte, secret string) ([]byte, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(data))
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

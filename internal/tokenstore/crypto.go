// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tokenstore

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2 parameters for deriving the file encryption key from the secret
// (OWASP recommended second choice: m=19456, t=2, p=1)
const (
	Argon2Time    = 2
	Argon2Memory  = 19 * 1024
	Argon2Threads = 1
	Argon2SaltLen = 16
)

// MinSecretLength is the minimum length of an encryption secret.
const MinSecretLength = 32

// ErrDecrypt is returned when a sealed token cannot be opened, usually
// because the secret changed.
var ErrDecrypt = errors.New("token store: cannot decrypt token")

// deriveKey stretches secret into an XChaCha20-Poly1305 key.
func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, Argon2Time, Argon2Memory, Argon2Threads, chacha20poly1305.KeySize)
}

// seal encrypts plaintext with a fresh salt and nonce. The key name is
// bound as associated data so a sealed value cannot be replayed under
// another key.
func seal(secret string, plaintext []byte) (salt, nonce, ciphertext []byte, err error) {
	salt = make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(secret, salt))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating cipher: %w", err)
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	return salt, nonce, aead.Seal(nil, nonce, plaintext, []byte(Key)), nil
}

// open reverses seal.
func open(secret string, salt, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(deriveKey(secret, salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(Key))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

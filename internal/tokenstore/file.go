// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// fileFormatVersion is written into every token file.
const fileFormatVersion = 1

// tokenFile is the on-disk layout. Either Token (plain) or the sealed
// fields are set.
type tokenFile struct {
	Version    int    `json:"version"`
	Key        string `json:"key"`
	Token      string `json:"token,omitempty"`
	Salt       []byte `json:"salt,omitempty"`
	Nonce      []byte `json:"nonce,omitempty"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
}

// FileStore keeps the token in a JSON file readable only by the owner.
// When a secret is configured the token is encrypted with
// XChaCha20-Poly1305 under an argon2id derived key.
type FileStore struct {
	path   string
	secret string
	mu     sync.Mutex
	closed atomic.Bool
}

// NewFileStore creates a FileStore at path. An empty secret stores the token
// in plain text.
func NewFileStore(path, secret string) (*FileStore, error) {
	if secret != "" && len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token encryption secret must be at least %d bytes long, got %d bytes",
			MinSecretLength, len(secret))
	}
	return &FileStore{path: path, secret: secret}, nil
}

// Encrypted reports whether tokens are sealed at rest.
func (s *FileStore) Encrypted() bool {
	return s.secret != ""
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (string, error) {
	if s.closed.Load() {
		return "", ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parsing token file: %w", err)
	}
	if tf.Key != Key {
		return "", fmt.Errorf("token file holds key %q, want %q", tf.Key, Key)
	}

	if len(tf.Ciphertext) == 0 {
		return tf.Token, nil
	}
	if s.secret == "" {
		return "", fmt.Errorf("token file is encrypted but no secret is configured")
	}
	plaintext, err := open(s.secret, tf.Salt, tf.Nonce, tf.Ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, token string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tf := tokenFile{Version: fileFormatVersion, Key: Key}
	if s.secret == "" {
		tf.Token = token
	} else {
		salt, nonce, ciphertext, err := seal(s.secret, []byte(token))
		if err != nil {
			return err
		}
		tf.Salt, tf.Nonce, tf.Ciphertext = salt, nonce, ciphertext
	}

	data, err := json.Marshal(tf)
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting token file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ Store = (*FileStore)(nil)

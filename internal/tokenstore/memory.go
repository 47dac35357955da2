// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryStore keeps the token in process memory. It does not survive a
// restart and is used in tests and when persistence is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	token  string
	closed atomic.Bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (string, error) {
	if s.closed.Load() {
		return "", ErrStoreClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, token string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context) error {
	return s.Save(ctx, "")
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ Store = (*MemoryStore)(nil)

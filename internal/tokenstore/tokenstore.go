// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tokenstore persists the session token between runs.
// One token is kept under the fixed key "authToken".
package tokenstore

import (
	"context"
	"fmt"
	"time"
)

// Key is the fixed storage key of the session token.
const Key = "authToken"

// Backend kinds accepted by New.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

// Store persists a single token string.
// All implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored token, or "" with a nil error when none is stored.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored token.
	Save(ctx context.Context, token string) error

	// Delete removes the stored token. Deleting a missing token is not an error.
	Delete(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Error represents an error type for token store operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

// ErrStoreClosed indicates the store has been closed.
const ErrStoreClosed Error = "token store closed"

// Options selects and configures a backend.
type Options struct {
	// Kind is one of KindMemory, KindFile, KindSQLite, KindRedis
	Kind string

	// Path is the token file (file) or database file (sqlite)
	Path string

	// Secret enables encryption at rest for the file backend ("" = plain)
	Secret string

	// RedisURL is the Redis connection URL (redis)
	RedisURL string

	// Prefix is prepended to the Redis key
	Prefix string

	// TTL expires the Redis entry (0 = never)
	TTL time.Duration
}

// New creates the store selected by opts.Kind.
func New(opts Options) (Store, error) {
	switch opts.Kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindFile, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("file token store requires a path")
		}
		return NewFileStore(opts.Path, opts.Secret)
	case KindSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite token store requires a path")
		}
		db, err := OpenDB(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewSQLiteStore(db, true), nil
	case KindRedis:
		return NewRedisStoreFromURL(opts.RedisURL, opts.Prefix, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown token store kind %q", opts.Kind)
	}
}

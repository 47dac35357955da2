// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/olegiv/rehearsal-go/internal/model"
)

// roomKeyPrefix namespaces room entries inside a shared cache.
const roomKeyPrefix = "room:"

// RoomCache stores rooms as JSON keyed by id.
type RoomCache struct {
	cache Cacher
	ttl   time.Duration
}

// NewRoomCache creates a RoomCache on top of cache. A zero ttl uses the
// cache default.
func NewRoomCache(cache Cacher, ttl time.Duration) *RoomCache {
	return &RoomCache{cache: cache, ttl: ttl}
}

// RoomKey returns the cache key of room id.
func RoomKey(id int64) string {
	return roomKeyPrefix + strconv.FormatInt(id, 10)
}

// Get returns the cached room. Entries that fail to decode count as misses.
func (c *RoomCache) Get(ctx context.Context, id int64) (*model.Room, bool) {
	data, err := c.cache.Get(ctx, RoomKey(id))
	if err != nil {
		return nil, false
	}
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, false
	}
	return &room, true
}

// Set caches room under its id.
func (c *RoomCache) Set(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, RoomKey(room.ID), data, c.ttl)
}

// GetOrLoad returns the cached room or calls load and caches the result.
// A failed cache write still returns the loaded room; a failed load caches
// nothing.
func (c *RoomCache) GetOrLoad(ctx context.Context, id int64, load func() (*model.Room, error)) (*model.Room, error) {
	if room, ok := c.Get(ctx, id); ok {
		return room, nil
	}
	room, err := load()
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, room)
	return room, nil
}

// Delete drops a single room.
func (c *RoomCache) Delete(ctx context.Context, id int64) error {
	return c.cache.Delete(ctx, RoomKey(id))
}

// Invalidate drops every cached room.
func (c *RoomCache) Invalidate(ctx context.Context) error {
	return c.cache.DeleteByPrefix(ctx, roomKeyPrefix)
}

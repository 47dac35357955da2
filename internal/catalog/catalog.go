// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog is the read side of the room catalogue: paged listing,
// cached lookups by id, and lookups by name slug.
package catalog

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/cache"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/model"
	"github.com/olegiv/rehearsal-go/internal/util"
)

// ErrRoomNotFound is returned when no room matches a reference. Errors for
// an id the service does not know match it too.
var ErrRoomNotFound error = i18n.Key("catalog.room_not_found")

// Message keys used when the server sends no message of its own.
const (
	MsgListFailed = "catalog.list_failed"
	MsgRoomFailed = "catalog.room_failed"
)

// scanPageSize is the page size used when searching all rooms.
const scanPageSize = 50

// Source fetches rooms from the service.
type Source interface {
	ListRooms(ctx context.Context, page, size int, sort string) (*model.Page[model.Room], error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
}

// Error is a failed catalogue call.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string { return e.Localize(i18n.DefaultLanguage) }

// Localize renders the error in lang: the server message when there is one,
// otherwise the Key entry.
func (e *Error) Localize(lang string) string {
	return api.Message(e.Err, i18n.T(lang, e.Key))
}

// Is reports a 404 from the service as ErrRoomNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrRoomNotFound && api.IsNotFound(e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Catalog serves rooms, caching single-room lookups.
type Catalog struct {
	src    Source
	rooms  *cache.RoomCache
	logger *slog.Logger
}

// New creates a Catalog. A nil rooms cache disables caching.
func New(src Source, rooms *cache.RoomCache, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{src: src, rooms: rooms, logger: logger}
}

// List returns one page of rooms with plain-text descriptions. Listed rooms
// also warm the cache.
func (c *Catalog) List(ctx context.Context, page, size int, sort string) (*model.Page[model.Room], error) {
	result, err := c.src.ListRooms(ctx, page, size, sort)
	if err != nil {
		c.logger.Warn("listing rooms failed", "page", page, "error", err)
		return nil, &Error{Key: MsgListFailed, Err: err}
	}

	for i := range result.Content {
		clean(&result.Content[i])
		if c.rooms != nil {
			if err := c.rooms.Set(ctx, &result.Content[i]); err != nil {
				c.logger.Debug("caching room failed", "room_id", result.Content[i].ID, "error", err)
			}
		}
	}
	return result, nil
}

// Get returns room id, from the cache when possible.
func (c *Catalog) Get(ctx context.Context, id int64) (*model.Room, error) {
	load := func() (*model.Room, error) {
		room, err := c.src.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		clean(room)
		return room, nil
	}

	var (
		room *model.Room
		err  error
	)
	if c.rooms != nil {
		room, err = c.rooms.GetOrLoad(ctx, id, load)
	} else {
		room, err = load()
	}
	if err != nil {
		if api.IsNotFound(err) {
			c.logger.Debug("room not found", "room_id", id)
		} else {
			c.logger.Warn("loading room failed", "room_id", id, "error", err)
		}
		return nil, &Error{Key: MsgRoomFailed, Err: err}
	}
	return room, nil
}

// FindBySlug scans the catalogue for the room whose name slugifies to slug.
func (c *Catalog) FindBySlug(ctx context.Context, slug string) (*model.Room, error) {
	for page := 0; ; page++ {
		result, err := c.List(ctx, page, scanPageSize, api.DefaultRoomSort)
		if err != nil {
			return nil, err
		}
		for i := range result.Content {
			if util.Slugify(result.Content[i].Name) == slug {
				return &result.Content[i], nil
			}
		}
		if !result.HasNext() || len(result.Content) == 0 {
			return nil, ErrRoomNotFound
		}
	}
}

// Lookup resolves ref as a numeric id or, failing that, as a room name.
func (c *Catalog) Lookup(ctx context.Context, ref string) (*model.Room, error) {
	if util.LooksLikeID(ref) {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err == nil {
			return c.Get(ctx, id)
		}
	}
	slug := util.Slugify(ref)
	if !util.IsValidSlug(slug) {
		return nil, ErrRoomNotFound
	}
	return c.FindBySlug(ctx, slug)
}

// Invalidate drops every cached room.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.rooms == nil {
		return nil
	}
	return c.rooms.Invalidate(ctx)
}

func clean(room *model.Room) {
	room.Description = util.PlainText(room.Description)
}

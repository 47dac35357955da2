// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/olegiv/rehearsal-go/internal/model"
)

// Room listing defaults.
const (
	DefaultPageSize = 10
	DefaultRoomSort = "id,asc"
)

// ListRooms fetches one page of rooms. page is zero-based; size <= 0 and an
// empty sort use the defaults.
func (c *Client) ListRooms(ctx context.Context, page, size int, sort string) (*model.Page[model.Room], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if sort == "" {
		sort = DefaultRoomSort
	}

	var result model.Page[model.Room]
	err := c.do(ctx, request{
		op:     "list rooms",
		method: http.MethodGet,
		path:   "/rooms",
		query: url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(size)},
			"sort": {sort},
		},
		out: &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRoom fetches a single room.
func (c *Client) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := c.do(ctx, request{
		op:     fmt.Sprintf("get room %d", id),
		method: http.MethodGet,
		path:   "/rooms/" + strconv.FormatInt(id, 10),
		out:    &room,
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

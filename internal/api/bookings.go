// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/olegiv/rehearsal-go/internal/model"
)

// CreateBooking submits a booking request. The returned booking carries the
// server computed total cost.
func (c *Client) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	var booking model.Booking
	err := c.do(ctx, request{
		op:     "create booking",
		method: http.MethodPost,
		path:   "/bookings",
		body:   req,
		out:    &booking,
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// MyBookings lists the bookings of the authenticated user. The service
// answers with either a bare array or a page object; both are accepted.
func (c *Client) MyBookings(ctx context.Context, page, size int) (*model.Page[model.Booking], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	var raw json.RawMessage
	err := c.do(ctx, request{
		op:     "list my bookings",
		method: http.MethodGet,
		path:   "/bookings/my-bookings",
		query: url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(size)},
		},
		out: &raw,
	})
	if err != nil {
		return nil, err
	}
	return decodeBookings(raw)
}

// CancelBooking deletes a booking.
func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		op:     fmt.Sprintf("cancel booking %d", id),
		method: http.MethodDelete,
		path:   "/bookings/" + strconv.FormatInt(id, 10),
	})
}

func decodeBookings(raw json.RawMessage) (*model.Page[model.Booking], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []model.Booking
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("list my bookings: decoding response: %w", err)
		}
		page := model.SinglePage(items)
		return &page, nil
	}

	var page model.Page[model.Booking]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("list my bookings: decoding response: %w", err)
	}
	return &page, nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package booking

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/model"
)

// DisplayLayout is the day/month/year layout used in user facing messages.
const DisplayLayout = "02/01/2006 15:04"

// Message keys of the bookings service.
const (
	MsgListFailed    = "booking.list_failed"
	MsgCancelFailed  = "booking.cancel_failed"
	MsgCancelContext = "booking.cancel_context"
)

// Store lists and cancels bookings of the authenticated user.
type Store interface {
	MyBookings(ctx context.Context, page, size int) (*model.Page[model.Booking], error)
	CancelBooking(ctx context.Context, id int64) error
}

// Bookings is the service behind the "my bookings" view.
type Bookings struct {
	store  Store
	logger *slog.Logger
}

// NewBookings creates a Bookings service.
func NewBookings(store Store, logger *slog.Logger) *Bookings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bookings{store: store, logger: logger}
}

// Mine lists one page of the session's bookings.
func (s *Bookings) Mine(ctx context.Context, page, size int) (*model.Page[model.Booking], error) {
	result, err := s.store.MyBookings(ctx, page, size)
	if err != nil {
		s.logger.Warn("listing bookings failed", "error", err)
		return nil, &ActionError{Fallback: MsgListFailed, Err: err}
	}
	return result, nil
}

// Cancel deletes b. The error names the booking so the caller can show it
// next to the list entry.
func (s *Bookings) Cancel(ctx context.Context, b model.Booking) error {
	if err := s.store.CancelBooking(ctx, b.ID); err != nil {
		s.logger.Warn("cancelling booking failed", "booking_id", b.ID, "error", err)
		return &ActionError{
			Key:      MsgCancelContext,
			Args:     []any{b.ID, b.RoomName, b.StartTime.Format(DisplayLayout)},
			Fallback: MsgCancelFailed,
			Err:      err,
		}
	}
	s.logger.Info("booking cancelled", "booking_id", b.ID)
	return nil
}

// ActionError is a failed bookings service call. Its reason is the server
// message, or the Fallback entry when the server sent none. A non-empty Key
// names an entry that embeds the reason after Args.
type ActionError struct {
	Key      string
	Args     []any
	Fallback string
	Err      error
}

func (e *ActionError) Error() string { return e.Localize(i18n.DefaultLanguage) }

// Localize renders the error in lang.
func (e *ActionError) Localize(lang string) string {
	reason := api.Message(e.Err, i18n.T(lang, e.Fallback))
	if e.Key == "" {
		return reason
	}
	return i18n.T(lang, e.Key, append(slices.Clone(e.Args), reason)...)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Upcoming splits bookings into those still ahead of now and those already
// completed, keeping the input order within each group.
func Upcoming(bookings []model.Booking, now time.Time) (upcoming, completed []model.Booking) {
	for _, b := range bookings {
		if b.IsCompleted(now) {
			completed = append(completed, b)
		} else {
			upcoming = append(upcoming, b)
		}
	}
	return upcoming, completed
}

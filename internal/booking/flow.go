// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package booking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/model"
)

// Submission errors.
var (
	ErrNotAuthenticated error = i18n.Key("booking.not_authenticated")
	ErrSubmitting       error = i18n.Key("booking.submitting")
)

// MsgSubmitFailed is the message key shown when a submission fails without
// a server message.
const MsgSubmitFailed = "booking.submit_failed"

// State is the submission state of a Flow.
type State int

// Submission states. A failed submission returns the flow to StateIdle with
// the error message recorded.
const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Creator submits booking requests.
type Creator interface {
	CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error)
}

// Authenticator reports whether a session is active.
type Authenticator interface {
	IsAuthenticated() bool
}

// FlowOptions configures a Flow.
type FlowOptions struct {
	Creator Creator
	Auth    Authenticator
	Hours   BusinessHours
	Logger  *slog.Logger
	Now     func() time.Time // defaults to time.Now
	Lang    string           // language of Error, defaults to i18n.DefaultLanguage
}

// Flow holds the selection and outcome of booking a single room.
type Flow struct {
	creator Creator
	auth    Authenticator
	hours   BusinessHours
	logger  *slog.Logger
	now     func() time.Time
	lang    string

	mu        sync.Mutex
	start     time.Time
	end       time.Time
	state     State
	errMsg    string
	confirmed *model.Booking
}

// NewFlow creates an idle Flow with no selection.
func NewFlow(opts FlowOptions) *Flow {
	f := &Flow{
		creator: opts.Creator,
		auth:    opts.Auth,
		hours:   opts.Hours,
		logger:  opts.Logger,
		now:     opts.Now,
		lang:    opts.Lang,
	}
	if f.lang == "" {
		f.lang = i18n.DefaultLanguage
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// SetStart selects the start time, snapped down to the minute step, and
// clears the previous outcome.
func (f *Flow) SetStart(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start = f.snap(t)
	f.resetOutcome()
}

// SetEnd selects the end time, snapped down to the minute step, and clears
// the previous outcome.
func (f *Flow) SetEnd(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.end = f.snap(t)
	f.resetOutcome()
}

// snap aligns t to the step grid of the business hours zone.
func (f *Flow) snap(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return SnapToStep(t.In(f.hours.zone(t)), f.hours.MinuteStep)
}

func (f *Flow) resetOutcome() {
	f.errMsg = ""
	f.confirmed = nil
	if f.state == StateSuccess {
		f.state = StateIdle
	}
}

// Selection returns the selected start and end after snapping. Zero means
// unselected.
func (f *Flow) Selection() (start, end time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.start, f.end
}

// State returns the current submission state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Error returns the message of the last failed submission or validation.
func (f *Flow) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Confirmed returns the booking echoed by the server after a successful
// submission, or nil.
func (f *Flow) Confirmed() *model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed
}

// Quote is the client side preview of the current selection.
type Quote struct {
	Window Window
	Cost   float64
	Err    error // nil when the selection may be submitted
}

// Valid reports whether the quoted selection may be submitted.
func (q Quote) Valid() bool {
	return q.Err == nil
}

// Quote previews the current selection for room.
func (f *Flow) Quote(room model.Room) Quote {
	f.mu.Lock()
	start, end := f.start, f.end
	f.mu.Unlock()

	return Quote{
		Window: NewWindow(start, end, f.hours.Location),
		Cost:   EstimateCost(start, end, room.PricePerHour),
		Err:    ValidateAt(f.now(), start, end, f.hours),
	}
}

// Submit books the current selection for room. On success the selection is
// cleared and the server's booking is returned. On failure the selection is
// kept and the user facing message is available from Error.
func (f *Flow) Submit(ctx context.Context, room model.Room) (*model.Booking, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	start, end := f.start, f.end
	if err := ValidateAt(f.now(), start, end, f.hours); err != nil {
		f.errMsg = i18n.Localize(f.lang, err)
		f.mu.Unlock()
		return nil, err
	}
	if f.auth == nil || !f.auth.IsAuthenticated() {
		f.errMsg = i18n.Localize(f.lang, ErrNotAuthenticated)
		f.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	f.state = StateSubmitting
	f.errMsg = ""
	f.confirmed = nil
	f.mu.Unlock()

	booking, err := f.creator.CreateBooking(ctx, model.BookingRequest{
		RoomID:    room.ID,
		StartTime: model.NewTimestamp(start),
		EndTime:   model.NewTimestamp(end),
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateIdle
		f.errMsg = api.Message(err, i18n.T(f.lang, MsgSubmitFailed))
		f.logger.Warn("booking failed", "room_id", room.ID, "error", err)
		return nil, fmt.Errorf("book %s: %w", room.Name, err)
	}

	f.state = StateSuccess
	f.confirmed = booking
	f.start, f.end = time.Time{}, time.Time{}
	f.logger.Info("booking created", "booking_id", booking.ID, "room_id", room.ID, "total_cost", booking.TotalCost)
	return booking, nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package booking implements the client side booking rules: the booking
// window validator, duration and cost estimation, the submission flow and
// the "my bookings" service.
package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/rehearsal-go/internal/i18n"
)

// Validation errors. The error text is the reason shown to the user.
var (
	ErrMissingTime    error = i18n.Key("booking.missing_time")
	ErrEndBeforeStart error = i18n.Key("booking.end_before_start")
	ErrDifferentDays  error = i18n.Key("booking.different_days")
	ErrStartsTooEarly error = i18n.Key("booking.starts_too_early")
	ErrStartsTooLate  error = i18n.Key("booking.starts_too_late")
	ErrEndsTooLate    error = i18n.Key("booking.ends_too_late")
	ErrNotOnStep      error = i18n.Key("booking.not_on_step")
	ErrTooSoon        error = i18n.Key("booking.too_soon")
)

// lastHourOfDay is the final representable hour. Only a business day that
// closes at this hour may end at midnight.
const lastHourOfDay = 23

// BusinessHours is the allowed booking range within a day.
type BusinessHours struct {
	EarliestHour int            // first hour a booking may start (inclusive)
	LatestHour   int            // hour by which a booking must end
	MinuteStep   int            // picker granularity in minutes (0 = any minute)
	MinLead      time.Duration  // minimum time between now and start (ValidateAt only)
	Location     *time.Location // zone for day and hour checks (nil = the start's zone)
}

// DefaultBusinessHours returns 10:00 to 23:00 with a 30 minute step.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		EarliestHour: 10,
		LatestHour:   23,
		MinuteStep:   30,
	}
}

// Check verifies that the hours themselves are usable.
func (h BusinessHours) Check() error {
	if h.EarliestHour < 0 || h.EarliestHour > lastHourOfDay {
		return fmt.Errorf("earliest hour %d out of range 0-23", h.EarliestHour)
	}
	if h.LatestHour < 1 || h.LatestHour > lastHourOfDay {
		return fmt.Errorf("latest hour %d out of range 1-23", h.LatestHour)
	}
	if h.EarliestHour >= h.LatestHour {
		return fmt.Errorf("earliest hour %d must be before latest hour %d", h.EarliestHour, h.LatestHour)
	}
	if h.MinuteStep < 0 || (h.MinuteStep > 0 && 60%h.MinuteStep != 0) {
		return fmt.Errorf("minute step %d must divide 60", h.MinuteStep)
	}
	if h.MinLead < 0 {
		return fmt.Errorf("minimum lead time %s must not be negative", h.MinLead)
	}
	return nil
}

// zone returns the location the checks run in for a window starting at start.
func (h BusinessHours) zone(start time.Time) *time.Location {
	if h.Location == nil {
		return start.Location()
	}
	return h.Location
}

// endsAtMidnightRollover reports whether end is exactly 00:00 and the
// business day closes at the last hour, so the end belongs to the previous day.
func (h BusinessHours) endsAtMidnightRollover(end time.Time) bool {
	return h.LatestHour == lastHourOfDay && clock(end) == 0
}

// Validate decides whether the window start..end may be booked. A zero time
// means the endpoint has not been selected. Rules are applied in order and
// the first failing rule is returned.
func Validate(start, end time.Time, hours BusinessHours) error {
	if start.IsZero() || end.IsZero() {
		return ErrMissingTime
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}

	loc := hours.zone(start)
	start, end = start.In(loc), end.In(loc)
	rollover := hours.endsAtMidnightRollover(end)

	endDay := end
	if rollover {
		endDay = end.Add(-time.Nanosecond)
	}
	if !sameDay(start, endDay) {
		return ErrDifferentDays
	}

	if start.Hour() < hours.EarliestHour {
		return ErrStartsTooEarly
	}
	if start.Hour() >= hours.LatestHour {
		return ErrStartsTooLate
	}
	if !rollover && end.Hour() > hours.LatestHour {
		return ErrEndsTooLate
	}

	if hours.MinuteStep > 0 && (!onStep(start, hours.MinuteStep) || !onStep(end, hours.MinuteStep)) {
		return ErrNotOnStep
	}
	return nil
}

// ValidateAt applies Validate and then requires start to be at least
// hours.MinLead after now. With a zero MinLead it still rejects starts in
// the past.
func ValidateAt(now, start, end time.Time, hours BusinessHours) error {
	if err := Validate(start, end, hours); err != nil {
		return err
	}
	if start.Before(now.Add(hours.MinLead)) {
		return ErrTooSoon
	}
	return nil
}

// IsValidationError reports whether err is one of the local validation errors.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrMissingTime, ErrEndBeforeStart, ErrDifferentDays, ErrStartsTooEarly,
		ErrStartsTooLate, ErrEndsTooLate, ErrNotOnStep, ErrTooSoon,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Window is the derived view of a proposed booking.
type Window struct {
	Start         time.Time
	End           time.Time
	DurationHours float64
	SameDay       bool
	StartHour     int
	EndHour       int
}

// NewWindow derives a Window from start and end evaluated in loc
// (nil keeps the instants' own location).
func NewWindow(start, end time.Time, loc *time.Location) Window {
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	return Window{
		Start:         start,
		End:           end,
		DurationHours: DurationHours(start, end),
		SameDay:       sameDay(start, end),
		StartHour:     start.Hour(),
		EndHour:       end.Hour(),
	}
}

// SnapToStep rounds t down to the nearest multiple of step minutes and drops
// seconds. A non-positive step only truncates to the minute.
func SnapToStep(t time.Time, step int) time.Time {
	t = t.Truncate(time.Minute)
	if step <= 0 {
		return t
	}
	excess := t.Minute() % step
	return t.Add(-time.Duration(excess) * time.Minute)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// clock returns the time elapsed since midnight on t's wall clock.
func clock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func onStep(t time.Time, step int) bool {
	return t.Second() == 0 && t.Nanosecond() == 0 && t.Minute()%step == 0
}

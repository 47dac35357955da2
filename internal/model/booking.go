// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// BookingRequest is the body of POST /bookings. It is built per submission
// and not retained.
type BookingRequest struct {
	RoomID    int64     `json:"roomId"`
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
}

// Booking is the booking projection returned by the service. TotalCost is
// computed server side and is authoritative.
type Booking struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	RoomName  string    `json:"roomName"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
	CreatedAt Timestamp `json:"createdAt"`
	TotalCost float64   `json:"totalCost"`
}

// Duration returns the booked span.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime.Time)
}

// IsCompleted reports whether the booking already ended at now.
func (b *Booking) IsCompleted(now time.Time) bool {
	return !b.EndTime.After(now)
}

// timestampLayouts are accepted when decoding. The backend emits local
// date-times without an offset; other producers send RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp is a time.Time that encodes as RFC 3339 and decodes both
// RFC 3339 and offset-less ISO-8601 local date-times (read in time.Local).
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses any of the accepted timestamp layouts.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		var (
			parsed time.Time
			err    error
		)
		if layout == time.RFC3339Nano {
			parsed, err = time.Parse(layout, s)
		} else {
			parsed, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unrecognized format %q", s)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Room is a bookable rehearsal room.
type Room struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Capacity     int      `json:"capacity"`
	Equipment    []string `json:"equipment"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Description  string   `json:"description,omitempty"`
	PricePerHour float64  `json:"pricePerHour"`
}

// DefaultRoomImage is shown when a room has no image of its own.
const DefaultRoomImage = "/images/rooms/default-room.svg"

// Image returns the room image URL or the default placeholder.
func (r *Room) Image() string {
	if r.ImageURL == "" {
		return DefaultRoomImage
	}
	return r.ImageURL
}

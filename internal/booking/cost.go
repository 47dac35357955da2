// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package booking

import (
	"math"
	"strconv"
	"time"
)

// DurationHours returns end-start in hours rounded to one decimal place.
// It is 0 when either endpoint is missing or end is not after start.
func DurationHours(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0
	}
	return roundTo(end.Sub(start).Hours(), 1)
}

// EstimateCost returns the client side estimate for booking start..end at
// pricePerHour, rounded to two decimal places. The server computes the
// final cost.
func EstimateCost(start, end time.Time, pricePerHour float64) float64 {
	hours := DurationHours(start, end)
	if hours <= 0 {
		return 0
	}
	return roundTo(hours*pricePerHour, 2)
}

// FormatCost renders an amount with two decimals, e.g. "50.00".
func FormatCost(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// FormatHours renders a duration in hours with one decimal, e.g. "2.5".
func FormatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', 1, 64)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Page is a paginated slice of results as returned by the service.
// Number is zero-based.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// HasNext reports whether another page follows this one.
func (p *Page[T]) HasNext() bool {
	if p.Last {
		return false
	}
	return p.Number+1 < p.TotalPages
}

// SinglePage wraps a bare list as a one-page result.
func SinglePage[T any](items []T) Page[T] {
	return Page[T]{
		Content:       items,
		TotalPages:    1,
		TotalElements: int64(len(items)),
		Size:          len(items),
		First:         true,
		Last:          true,
	}
}

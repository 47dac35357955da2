// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNetwork marks failures where no response was received from the service.
var ErrNetwork = errors.New("network error")

// Error is a non-2xx response from the service. Message carries the server
// provided "message" field verbatim when the body had one.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ServerMessage returns the server provided message carried by err, or "".
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// Message converts err into a user facing string: the server message when
// one was sent, otherwise fallback. Local failure text is never returned.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}

// errorBody is the JSON error envelope used by the service.
type errorBody struct {
	Message string `json:"message"`
}

// parseError builds an *Error from a failed response body.
func parseError(op string, status int, body []byte) *Error {
	apiErr := &Error{Op: op, Status: status}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		apiErr.Message = strings.TrimSpace(eb.Message)
	}
	return apiErr
}

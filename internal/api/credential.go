// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import "sync"

// Credential holds the bearer token attached to outgoing requests.
// The session manager is its only writer; every request reads it.
type Credential struct {
	mu    sync.RWMutex
	token string
}

// NewCredential returns an empty credential.
func NewCredential() *Credential {
	return &Credential{}
}

// Set installs token as the bearer credential.
func (c *Credential) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Clear removes the bearer credential.
func (c *Credential) Clear() {
	c.Set("")
}

// Token returns the current token, or "" when none is installed.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Header returns the Authorization header value, or "" when no token is set.
func (c *Credential) Header() string {
	token := c.Token()
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

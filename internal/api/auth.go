// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/olegiv/rehearsal-go/internal/model"
)

// ErrNoToken is returned when a login response carries no access token.
var ErrNoToken = errors.New("login response has no access token")

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/auth/register",
		body:   reg,
		out:    &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token. It does not install the
// token; that is the session manager's job.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   creds,
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &resp, nil
}

// Me fetches the user owning the current credential.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		op:     "get current user",
		method: http.MethodGet,
		path:   "/users/me",
		out:    &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

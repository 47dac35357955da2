// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session owns the authentication state of the running client: the
// current user, the bearer token, and the loading flag. It keeps the token
// store and the request credential in step with that state.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/model"
	"github.com/olegiv/rehearsal-go/internal/tokenstore"
)

// Session errors.
var (
	ErrBusy             error = i18n.Key("session.busy")
	ErrNotAuthenticated error = i18n.Key("session.not_authenticated")
)

// Message keys used when the server sends no message of its own.
const (
	MsgInvalidCredentials = "session.invalid_credentials"
	MsgLoginFailed        = "session.login_failed"
	MsgRegisterFailed     = "session.register_failed"
	MsgRefreshFailed      = "session.refresh_failed"
)

// Error is a failed session operation. It reads as the server message when
// the API sent one and as the Key entry otherwise; local failures such as a
// token store error never reach the user verbatim.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string { return e.Localize(i18n.DefaultLanguage) }

// Localize renders the error in lang.
func (e *Error) Localize(lang string) string {
	return api.Message(e.Err, i18n.T(lang, e.Key))
}

func (e *Error) Unwrap() error { return e.Err }

// Client is the part of the API the session needs.
type Client interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error)
	Register(ctx context.Context, reg model.Registration) (*model.User, error)
	Me(ctx context.Context) (*model.User, error)
}

// State is a snapshot of the session.
type State struct {
	User      *model.User
	Token     string
	IsLoading bool
}

// IsAuthenticated reports whether the snapshot has a user and a token and
// nothing is loading.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Token != "" && !s.IsLoading
}

// Manager is the session manager. It starts in the loading state until
// Initialize has run.
type Manager struct {
	client Client
	cred   *api.Credential
	store  tokenstore.Store
	logger *slog.Logger

	mu        sync.RWMutex
	user      *model.User
	token     string
	loading   bool
	loggingIn bool
}

// New creates a Manager. cred must be the credential used by client.
func New(client Client, cred *api.Credential, store tokenstore.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:  client,
		cred:    cred,
		store:   store,
		logger:  logger,
		loading: true,
	}
}

// Initialize restores a persisted session. A stored token that no longer
// validates is discarded; the failure is logged, never returned.
func (m *Manager) Initialize(ctx context.Context) {
	defer m.setLoading(false)

	token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("reading stored token failed", "error", err)
		return
	}
	if token == "" {
		return
	}

	m.cred.Set(token)
	user, err := m.client.Me(ctx)
	if err != nil {
		m.logger.Warn("stored token rejected, logging out", "error", err)
		m.reset(ctx)
		return
	}

	m.mu.Lock()
	m.user = user
	m.token = token
	m.mu.Unlock()
	m.logger.Debug("session restored", "user", user.Username)
}

// Login exchanges creds for a token and loads the current user. Any failure
// leaves the session fully logged out.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	m.mu.Lock()
	if m.loggingIn {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.loggingIn = true
	m.loading = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loggingIn = false
		m.loading = false
		m.mu.Unlock()
	}()

	user, token, err := m.login(ctx, creds)
	if err != nil {
		m.reset(ctx)
		m.logger.Info("login failed", "user", creds.UsernameOrEmail, "error", err)
		return nil, &Error{Key: loginKey(err), Err: err}
	}

	m.mu.Lock()
	m.user = user
	m.token = token
	m.mu.Unlock()
	m.logger.Info("logged in", "user", user.Username)
	return user, nil
}

func (m *Manager) login(ctx context.Context, creds model.Credentials) (*model.User, string, error) {
	resp, err := m.client.Login(ctx, creds)
	if err != nil {
		return nil, "", err
	}
	if err := m.store.Save(ctx, resp.AccessToken); err != nil {
		return nil, "", err
	}
	m.cred.Set(resp.AccessToken)

	user, err := m.client.Me(ctx)
	if err != nil {
		return nil, "", err
	}
	return user, resp.AccessToken, nil
}

func loginKey(err error) string {
	if api.IsUnauthorized(err) {
		return MsgInvalidCredentials
	}
	return MsgLoginFailed
}

// Register creates an account. The session is not changed.
func (m *Manager) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	user, err := m.client.Register(ctx, reg)
	if err != nil {
		m.logger.Info("registration failed", "user", reg.Username, "error", err)
		return nil, &Error{Key: MsgRegisterFailed, Err: err}
	}
	m.logger.Info("registered", "user", user.Username)
	return user, nil
}

// Logout clears the user, the token, the persisted token, and the credential.
// It makes no network call and may be called any number of times. The
// in-memory state is cleared even when the store fails.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
	m.cred.Clear()

	if err := m.store.Delete(context.Background()); err != nil {
		m.logger.Warn("deleting stored token failed", "error", err)
		return err
	}
	return nil
}

// Refresh refetches the current user. A rejected token resets the session.
func (m *Manager) Refresh(ctx context.Context) (*model.User, error) {
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := m.client.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			m.logger.Warn("token rejected on refresh, logging out", "error", err)
			m.reset(ctx)
		}
		return nil, &Error{Key: MsgRefreshFailed, Err: err}
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{Token: m.token, IsLoading: m.loading}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// User returns the current user, or nil.
func (m *Manager) User() *model.User {
	return m.State().User
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// reset returns to the logged out state without touching the loading flag.
func (m *Manager) reset(ctx context.Context) {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
	m.cred.Clear()

	if err := m.store.Delete(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("deleting stored token failed", "error", err)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api is the HTTP client for the rehearsal-room booking service.
// Authentication is carried by an explicit Credential injected at
// construction; the client holds no process-wide state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client configuration constants
const (
	DefaultBaseURL   = "http://localhost:8080/api"
	DefaultUserAgent = "rehearsal-go/1.0"
	DefaultBurst     = 5
	MaxErrorBodyLen  = 10 * 1024        // error bodies are only read for their message
	MaxBodyLen       = 10 * 1024 * 1024 // upper bound for decoded success bodies
	RequestIDHeader  = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api
	BaseURL string

	// HTTPClient performs requests (nil = a client with no timeout, like the
	// default http.Client)
	HTTPClient *http.Client

	// Credential supplies the bearer token (nil = a fresh empty credential)
	Credential *Credential

	// RateLimit is the maximum request rate per second (0 = unlimited)
	RateLimit float64

	// Burst is the limiter burst size (0 = DefaultBurst)
	Burst int

	// UserAgent overrides DefaultUserAgent
	UserAgent string

	// Logger receives request logs (nil = slog.Default())
	Logger *slog.Logger
}

// Client talks to the booking service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	credential *Credential
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// New creates a Client from opts.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base URL %q must have a host", opts.BaseURL)
	}

	c := &Client{
		baseURL:    base,
		httpClient: opts.HTTPClient,
		credential: opts.Credential,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.credential == nil {
		c.credential = NewCredential()
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = DefaultBurst
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// Credential returns the credential attached to every request.
func (c *Client) Credential() *Credential {
	return c.credential
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes a single API call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any
}

// do performs r and decodes a successful JSON response into r.out.
func (c *Client) do(ctx context.Context, r request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", r.op, err)
		}
	}

	target := *c.baseURL
	target.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		target.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", r.op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := c.credential.Header(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"op", r.op,
			"request_id", requestID,
			"error", err)
		return fmt.Errorf("%s: %w: %w", r.op, ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodyLen))
		return parseError(r.op, resp.StatusCode, errBody)
	}

	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxErrorBodyLen))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodyLen)).Decode(r.out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response body", r.op)
		}
		return fmt.Errorf("%s: decoding response: %w", r.op, err)
	}
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/rehearsal-go/internal/api"
	"github.com/olegiv/rehearsal-go/internal/booking"
	"github.com/olegiv/rehearsal-go/internal/cache"
	"github.com/olegiv/rehearsal-go/internal/catalog"
	"github.com/olegiv/rehearsal-go/internal/config"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/logging"
	"github.com/olegiv/rehearsal-go/internal/session"
	"github.com/olegiv/rehearsal-go/internal/tokenstore"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *api.Client
	store    tokenstore.Store
	cache    cache.Cacher
	session  *session.Manager
	catalog  *catalog.Catalog
	bookings *booking.Bookings
	lang     string
	out      io.Writer
}

// newApp loads the configuration and wires every component. The session is
// initialized before newApp returns.
func newApp(ctx context.Context, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(stderr, cfg.SlogLevel())
	slog.SetDefault(logger)
	if err := i18n.Init(logger); err != nil {
		// Messages fall back to their keys.
		logger.Error("loading translations failed", "error", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	ua := cfg.UserAgent
	if ua == "" {
		ua = versionInfo().UserAgent()
	}
	client, err := api.New(api.Options{
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: httpClient,
		RateLimit:  cfg.RateLimit,
		Burst:      cfg.RateBurst,
		UserAgent:  ua,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	store, err := tokenstore.New(cfg.TokenStoreOptions())
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	if file, ok := store.(*tokenstore.FileStore); ok && !file.Encrypted() {
		logger.Info("token file is not encrypted; set RR_TOKEN_SECRET to encrypt it")
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		store:    store,
		session:  session.New(client, client.Credential(), store, logger),
		bookings: booking.NewBookings(client, logger),
		lang:     cfg.Language,
		out:      stdout,
	}

	var rooms *cache.RoomCache
	if cfg.CacheTTL > 0 {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.DefaultTTL = cfg.CacheDuration()
		if cfg.UseRedis() {
			cacheCfg.Type = cache.TypeRedis
			cacheCfg.RedisURL = cfg.RedisURL
			cacheCfg.Prefix = cfg.RedisPrefix + "cache:"
		}
		c, err := cache.New(cacheCfg)
		if err != nil {
			// The catalogue works without a cache.
			logger.Warn("room cache unavailable", "error", err)
		} else {
			a.cache = c
			rooms = cache.NewRoomCache(c, cfg.CacheDuration())
		}
	}
	a.catalog = catalog.New(client, rooms, logger)

	a.session.Initialize(ctx)
	return a, nil
}

// newFlow returns a booking flow bound to the session.
func (a *app) newFlow() *booking.Flow {
	return booking.NewFlow(booking.FlowOptions{
		Creator: a.client,
		Auth:    a.session,
		Hours:   a.cfg.BusinessHours(),
		Lang:    a.lang,
		Logger:  a.logger,
	})
}

// t translates key into the configured language.
func (a *app) t(key string, args ...any) string {
	return i18n.T(a.lang, key, args...)
}

func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		if sp, ok := a.cache.(cache.StatsProvider); ok {
			st := sp.Stats()
			a.logger.Debug("room cache stats", "hits", st.Hits, "misses", st.Misses,
				"sets", st.Sets, "items", st.Items, "hit_rate", st.HitRate)
		}
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the client configuration from RR_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/rehearsal-go/internal/booking"
	"github.com/olegiv/rehearsal-go/internal/i18n"
	"github.com/olegiv/rehearsal-go/internal/tokenstore"
)

// knownWeakSecrets contains example secrets that must never encrypt a real token.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the client configuration loaded from environment variables.
type Config struct {
	APIBaseURL string `env:"RR_API_BASE_URL" envDefault:"http://localhost:8080/api"`
	Env        string `env:"RR_ENV" envDefault:"production"`
	LogLevel   string `env:"RR_LOG_LEVEL"`            // Defaults to info in development, warn otherwise
	Language   string `env:"RR_LANG" envDefault:"en"` // Message language: en|es, regional variants such as es-AR accepted
	DataDir    string `env:"RR_DATA_DIR"`             // Defaults to <user config dir>/rehearsal

	// HTTP client
	HTTPTimeoutSec int     `env:"RR_HTTP_TIMEOUT" envDefault:"0"` // 0 keeps the http.Client default (no timeout)
	RateLimit      float64 `env:"RR_RATE_LIMIT" envDefault:"5"`   // Requests per second, 0 = unlimited
	RateBurst      int     `env:"RR_RATE_BURST" envDefault:"5"`   // Limiter burst size
	UserAgent      string  `env:"RR_USER_AGENT"`                  // Optional User-Agent override

	// Token persistence
	TokenStore  string `env:"RR_TOKEN_STORE" envDefault:"file"` // memory|file|sqlite|redis
	TokenPath   string `env:"RR_TOKEN_PATH"`                    // Defaults under DataDir
	TokenSecret string `env:"RR_TOKEN_SECRET"`                  // Optional, enables encryption of the token file
	TokenTTL    int    `env:"RR_TOKEN_TTL" envDefault:"0"`      // Redis token TTL in seconds, 0 = no expiry

	// Redis (token store and room cache)
	RedisURL    string `env:"RR_REDIS_URL"`                            // Optional Redis URL
	RedisPrefix string `env:"RR_REDIS_PREFIX" envDefault:"rehearsal:"` // Redis key prefix
	CacheTTL    int    `env:"RR_CACHE_TTL" envDefault:"300"`           // Room cache TTL in seconds, 0 disables caching

	// Business hours
	Timezone     string `env:"RR_TIMEZONE" envDefault:"Local"`
	EarliestHour int    `env:"RR_EARLIEST_HOUR" envDefault:"10"`
	LatestHour   int    `env:"RR_LATEST_HOUR" envDefault:"23"`
	MinuteStep   int    `env:"RR_MINUTE_STEP" envDefault:"30"`
	MinLeadMin   int    `env:"RR_MIN_LEAD" envDefault:"0"` // Minutes between now and the earliest bookable start

	location *time.Location
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("RR_API_BASE_URL %q must be an absolute http(s) URL", c.APIBaseURL)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("RR_LOG_LEVEL %q must be one of debug, info, warn, error", c.LogLevel)
	}

	lang := strings.ToLower(strings.TrimSpace(c.Language))
	base, _, _ := strings.Cut(strings.ReplaceAll(lang, "_", "-"), "-")
	if !i18n.IsSupported(base) {
		return fmt.Errorf("RR_LANG %q must be one of %s", c.Language, strings.Join(i18n.SupportedLanguages, ", "))
	}
	c.Language = i18n.MatchLanguage(strings.ReplaceAll(lang, "_", "-"))

	if c.HTTPTimeoutSec < 0 {
		return fmt.Errorf("RR_HTTP_TIMEOUT must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RR_RATE_LIMIT must not be negative")
	}

	switch c.TokenStore {
	case tokenstore.KindMemory, tokenstore.KindFile, tokenstore.KindSQLite:
	case tokenstore.KindRedis:
		if !c.UseRedis() {
			return fmt.Errorf("RR_TOKEN_STORE=redis requires RR_REDIS_URL")
		}
	default:
		return fmt.Errorf("RR_TOKEN_STORE %q must be one of memory, file, sqlite, redis", c.TokenStore)
	}

	if c.TokenSecret != "" {
		if len(c.TokenSecret) < tokenstore.MinSecretLength {
			return fmt.Errorf("RR_TOKEN_SECRET must be at least %d bytes long, got %d bytes; "+
				"generate a secure secret with: openssl rand -base64 32",
				tokenstore.MinSecretLength, len(c.TokenSecret))
		}
		for _, weak := range knownWeakSecrets {
			if c.TokenSecret == weak {
				return fmt.Errorf("RR_TOKEN_SECRET is a known default value and must not be used; " +
					"generate a secure secret with: openssl rand -base64 32")
			}
		}
		if !hasMinimumEntropy(c.TokenSecret) {
			slog.Warn("RR_TOKEN_SECRET has low character diversity; " +
				"consider generating a random secret with: openssl rand -base64 32")
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("RR_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.MinLeadMin < 0 {
		return fmt.Errorf("RR_MIN_LEAD must not be negative")
	}
	if err := c.BusinessHours().Check(); err != nil {
		return fmt.Errorf("business hours: %w", err)
	}
	return nil
}

// IsDevelopment returns true if the client runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UseRedis returns true if a Redis URL is configured.
func (c *Config) UseRedis() bool {
	return c.RedisURL != ""
}

// HTTPTimeout returns the request timeout, 0 meaning none.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// CacheDuration returns the room cache TTL.
func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// TokenDuration returns the Redis token TTL.
func (c *Config) TokenDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Second
}

// Location returns the zone used for business hour checks and for parsing
// user supplied times.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// BusinessHours returns the booking rules derived from the configuration.
func (c *Config) BusinessHours() booking.BusinessHours {
	return booking.BusinessHours{
		EarliestHour: c.EarliestHour,
		LatestHour:   c.LatestHour,
		MinuteStep:   c.MinuteStep,
		MinLead:      time.Duration(c.MinLeadMin) * time.Minute,
		Location:     c.Location(),
	}
}

// DataDirectory returns RR_DATA_DIR or <user config dir>/rehearsal.
func (c *Config) DataDirectory() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rehearsal")
	}
	return ".rehearsal"
}

// TokenStoreOptions returns the options for tokenstore.New.
func (c *Config) TokenStoreOptions() tokenstore.Options {
	path := c.TokenPath
	if path == "" {
		switch c.TokenStore {
		case tokenstore.KindSQLite:
			path = filepath.Join(c.DataDirectory(), "rehearsal.db")
		default:
			path = filepath.Join(c.DataDirectory(), "token.json")
		}
	}
	return tokenstore.Options{
		Kind:     c.TokenStore,
		Path:     path,
		Secret:   c.TokenSecret,
		RedisURL: c.RedisURL,
		Prefix:   c.RedisPrefix,
		TTL:      c.TokenDuration(),
	}
}

// SlogLevel maps LogLevel to a slog.Level. Without an explicit level,
// development runs log at info and everything else at warn.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.IsDevelopment() {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/rehearsal-go/internal/tokenstore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "RR_") {
			t.Setenv(key, "")
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8080/api")
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, want %q", cfg.Env, "production")
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("SlogLevel() = %v, want warn", cfg.SlogLevel())
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want %q", cfg.Language, "en")
	}
	if cfg.TokenStore != tokenstore.KindFile {
		t.Errorf("TokenStore = %q, want %q", cfg.TokenStore, tokenstore.KindFile)
	}
	if cfg.HTTPTimeout() != 0 {
		t.Errorf("HTTPTimeout() = %v, want 0", cfg.HTTPTimeout())
	}
	if cfg.RateLimit != 5 || cfg.RateBurst != 5 {
		t.Errorf("rate limit = %v/%d, want 5/5", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.CacheDuration() != 5*time.Minute {
		t.Errorf("CacheDuration() = %v, want 5m", cfg.CacheDuration())
	}

	hours := cfg.BusinessHours()
	if hours.EarliestHour != 10 || hours.LatestHour != 23 || hours.MinuteStep != 30 {
		t.Errorf("BusinessHours() = %+v, want 10..23 step 30", hours)
	}
	if hours.MinLead != 0 {
		t.Errorf("MinLead = %v, want 0", hours.MinLead)
	}
	if cfg.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", cfg.Location())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("RR_API_BASE_URL", "https://studio.example.com/api")
	t.Setenv("RR_ENV", "production")
	t.Setenv("RR_LOG_LEVEL", "debug")
	t.Setenv("RR_LANG", " es_AR ")
	t.Setenv("RR_DATA_DIR", dir)
	t.Setenv("RR_HTTP_TIMEOUT", "15")
	t.Setenv("RR_TOKEN_STORE", "sqlite")
	t.Setenv("RR_TIMEZONE", "Europe/Berlin")
	t.Setenv("RR_EARLIEST_HOUR", "9")
	t.Setenv("RR_LATEST_HOUR", "22")
	t.Setenv("RR_MINUTE_STEP", "15")
	t.Setenv("RR_MIN_LEAD", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if cfg.Language != "es" {
		t.Errorf("Language = %q, want %q", cfg.Language, "es")
	}
	if cfg.HTTPTimeout() != 15*time.Second {
		t.Errorf("HTTPTimeout() = %v, want 15s", cfg.HTTPTimeout())
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, want Europe/Berlin", cfg.Location())
	}

	hours := cfg.BusinessHours()
	if hours.EarliestHour != 9 || hours.LatestHour != 22 || hours.MinuteStep != 15 {
		t.Errorf("BusinessHours() = %+v", hours)
	}
	if hours.MinLead != time.Hour {
		t.Errorf("MinLead = %v, want 1h", hours.MinLead)
	}

	opts := cfg.TokenStoreOptions()
	if opts.Kind != tokenstore.KindSQLite {
		t.Errorf("Kind = %q, want sqlite", opts.Kind)
	}
	if want := filepath.Join(dir, "rehearsal.db"); opts.Path != want {
		t.Errorf("Path = %q, want %q", opts.Path, want)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"relative base url", "RR_API_BASE_URL", "/api", "RR_API_BASE_URL"},
		{"ftp base url", "RR_API_BASE_URL", "ftp://example.com", "RR_API_BASE_URL"},
		{"log level", "RR_LOG_LEVEL", "verbose", "RR_LOG_LEVEL"},
		{"language", "RR_LANG", "de", "RR_LANG"},
		{"negative timeout", "RR_HTTP_TIMEOUT", "-1", "RR_HTTP_TIMEOUT"},
		{"negative rate", "RR_RATE_LIMIT", "-2", "RR_RATE_LIMIT"},
		{"token store kind", "RR_TOKEN_STORE", "etcd", "RR_TOKEN_STORE"},
		{"redis without url", "RR_TOKEN_STORE", "redis", "RR_REDIS_URL"},
		{"timezone", "RR_TIMEZONE", "Mars/Olympus", "RR_TIMEZONE"},
		{"negative lead", "RR_MIN_LEAD", "-5", "RR_MIN_LEAD"},
		{"latest before earliest", "RR_LATEST_HOUR", "8", "business hours"},
		{"not a number", "RR_HTTP_TIMEOUT", "soon", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should fail for %s=%q", tt.key, tt.val)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_TokenSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty disables encryption", "", false},
		{"too short", "short-secret", true},
		{"known weak secret", "change-me-to-32-byte-secret-key!", true},
		{"exactly 32 bytes", "Xk9#mP2$vL5nQ8wR3jF6hT1yB4cA7eD0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("RR_TOKEN_SECRET", tt.secret)

			_, err := Load()
			if tt.wantErr && err == nil {
				t.Error("Load() should fail")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Load() error: %v", err)
			}
		})
	}
}

func TestLoad_RedisTokenStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("RR_TOKEN_STORE", "redis")
	t.Setenv("RR_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("RR_TOKEN_TTL", "3600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.UseRedis() {
		t.Error("UseRedis() = false, want true")
	}

	opts := cfg.TokenStoreOptions()
	if opts.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("RedisURL = %q", opts.RedisURL)
	}
	if opts.Prefix != "rehearsal:" {
		t.Errorf("Prefix = %q, want %q", opts.Prefix, "rehearsal:")
	}
	if opts.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", opts.TTL)
	}
}

func TestConfig_TokenPathOverride(t *testing.T) {
	cfg := &Config{TokenStore: tokenstore.KindFile, TokenPath: "/tmp/custom-token.json"}
	if got := cfg.TokenStoreOptions().Path; got != "/tmp/custom-token.json" {
		t.Errorf("Path = %q, want override", got)
	}

	cfg = &Config{TokenStore: tokenstore.KindFile, DataDir: "/var/lib/rr"}
	if got := cfg.TokenStoreOptions().Path; got != filepath.Join("/var/lib/rr", "token.json") {
		t.Errorf("Path = %q, want token.json under data dir", got)
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelWarn,
	}
	for level, want := range tests {
		cfg := &Config{LogLevel: level}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestConfig_SlogLevelInDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("RR_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", cfg.SlogLevel())
	}

	cfg.LogLevel = "error"
	if cfg.SlogLevel() != slog.LevelError {
		t.Errorf("SlogLevel() = %v, want error", cfg.SlogLevel())
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Error("single class secret should not pass")
	}
	if !hasMinimumEntropy("abcABC123abcABC123abcABC123abcAB") {
		t.Error("three class secret should pass")
	}
}

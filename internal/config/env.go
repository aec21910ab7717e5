// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/playkit/dtg/internal/log"
)

type envLookupFunc func(string) (string, bool)

// envOverlay applies DTG_-prefixed environment variables on top of a
// file-derived configuration. Unset variables leave the existing value
// untouched; malformed values are logged and ignored, not fatal.
type envOverlay struct {
	lookup envLookupFunc
}

func newEnvOverlay(lookup envLookupFunc) *envOverlay {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envOverlay{lookup: lookup}
}

func (e *envOverlay) apply(cfg FileConfig) FileConfig {
	cfg.DataDir = e.str("DTG_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = e.str("DTG_LOG_LEVEL", cfg.LogLevel)
	cfg.ListenAddr = e.str("DTG_LISTEN_ADDR", cfg.ListenAddr)
	if v, ok := e.lookup("DTG_STORE_BACKEND"); ok {
		cfg.StoreBackend = StoreBackend(v)
	}
	if v, ok := e.lookup("DTG_RESUME_BACKEND"); ok {
		cfg.ResumeBackend = ResumeBackend(v)
	}

	cfg.Worker.MaxConcurrentItems = e.int("DTG_MAX_CONCURRENT_ITEMS", cfg.Worker.MaxConcurrentItems)
	cfg.Worker.MaxConcurrentTasks = e.int("DTG_MAX_CONCURRENT_TASKS", cfg.Worker.MaxConcurrentTasks)
	cfg.Worker.RetryBudget = e.int("DTG_RETRY_BUDGET", cfg.Worker.RetryBudget)
	cfg.Worker.BackoffBase = e.duration("DTG_BACKOFF_BASE", cfg.Worker.BackoffBase)
	cfg.Worker.BackoffMax = e.duration("DTG_BACKOFF_MAX", cfg.Worker.BackoffMax)
	cfg.Worker.RequestTimeout = e.duration("DTG_REQUEST_TIMEOUT", cfg.Worker.RequestTimeout)
	cfg.Worker.RateLimitPerOrigin = e.float("DTG_RATE_LIMIT_RPS", cfg.Worker.RateLimitPerOrigin)
	cfg.Worker.RateLimitBurst = e.int("DTG_RATE_LIMIT_BURST", cfg.Worker.RateLimitBurst)

	if v, ok := e.lookup("DTG_AUDIO_LANGUAGES"); ok {
		cfg.Selection.AudioLanguages = splitCSV(v)
	}
	if v, ok := e.lookup("DTG_AUDIO_LANGUAGE_POLICY"); ok {
		cfg.Selection.AudioLanguagePolicy = LanguagePolicy(v)
	}
	if v, ok := e.lookup("DTG_TEXT_LANGUAGES"); ok {
		cfg.Selection.TextLanguages = splitCSV(v)
	}
	if v, ok := e.lookup("DTG_TEXT_LANGUAGE_POLICY"); ok {
		cfg.Selection.TextLanguagePolicy = LanguagePolicy(v)
	}

	if v, ok := e.lookup("DTG_API_ALLOWED_ORIGINS"); ok {
		cfg.API.AllowedOrigins = splitCSV(v)
	}
	cfg.API.RateLimitEnabled = e.bool("DTG_API_RATE_LIMIT_ENABLED", cfg.API.RateLimitEnabled)
	cfg.API.RateLimitRPS = e.int("DTG_API_RATE_LIMIT_RPS", cfg.API.RateLimitRPS)
	cfg.API.RateLimitBurst = e.int("DTG_API_RATE_LIMIT_BURST", cfg.API.RateLimitBurst)
	if v, ok := e.lookup("DTG_API_RATE_LIMIT_WHITELIST"); ok {
		cfg.API.RateLimitWhitelist = splitCSV(v)
	}

	cfg.Telemetry.TracingEnabled = e.bool("DTG_TRACING_ENABLED", cfg.Telemetry.TracingEnabled)
	cfg.Telemetry.OTLPEndpoint = e.str("DTG_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)

	return cfg
}

func (e *envOverlay) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e *envOverlay) int(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logWarnBadEnv(key, v)
		return fallback
	}
	return n
}

func (e *envOverlay) float(key string, fallback float64) float64 {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logWarnBadEnv(key, v)
		return fallback
	}
	return f
}

func (e *envOverlay) bool(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logWarnBadEnv(key, v)
		return fallback
	}
	return b
}

func (e *envOverlay) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logWarnBadEnv(key, v)
		return fallback
	}
	return d
}

func logWarnBadEnv(key, value string) {
	log.WithComponent("config").Warn().
		Str("env_key", key).
		Str("value", value).
		Msg("ignoring malformed environment override")
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

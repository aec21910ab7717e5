// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit throttles the worker's outbound fetches per origin
// host, independent of the concurrency bound: a generous concurrency
// setting must not be usable to flood one origin with requests.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config bounds a single origin's request rate.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	// CleanupInterval bounds the per-origin map: once it has elapsed since
	// the last cleanup, the next lookup drops every cached limiter, busy
	// origins included, and each origin gets a fresh limiter on next use.
	CleanupInterval time.Duration
}

// DefaultConfig mirrors the worker's default rate-limit knobs (see
// internal/config.WorkerConfig).
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 8,
		Burst:             16,
		CleanupInterval:   10 * time.Minute,
	}
}

// Limiter hands out one token-bucket rate.Limiter per origin host, created
// lazily on first use.
type Limiter struct {
	cfg Config

	mu          sync.Mutex
	perOrigin   map[string]*rate.Limiter
	lastCleanup time.Time
}

// New creates an origin-scoped limiter.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 8
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 16
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	return &Limiter{
		cfg:         cfg,
		perOrigin:   make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// OriginOf extracts the rate-limit key (scheme://host) from an absolute
// URL. Unparsable URLs fall back to the raw string so they still get their
// own bucket rather than sharing one with every other malformed URL.
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// Wait blocks until a request to origin is permitted, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, origin string) error {
	return l.limiterFor(origin).Wait(ctx)
}

// Allow reports whether a request to origin is immediately permitted,
// without blocking. Used by callers that prefer to back off themselves
// rather than block inside the rate limiter.
func (l *Limiter) Allow(origin string) bool {
	return l.limiterFor(origin).Allow()
}

func (l *Limiter) limiterFor(origin string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeCleanupLocked()

	rl, ok := l.perOrigin[origin]
	if !ok {
		rl = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.perOrigin[origin] = rl
	}
	return rl
}

func (l *Limiter) maybeCleanupLocked() {
	if time.Since(l.lastCleanup) < l.cfg.CleanupInterval {
		return
	}
	l.perOrigin = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

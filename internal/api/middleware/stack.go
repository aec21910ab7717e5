// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware assembles the canonical HTTP ingress stack for this
// module's own API server: recovery, request IDs, CORS, security headers,
// metrics, structured logging, and rate limiting, in that order, so every
// route registered against the router built here picks up the same
// cross-cutting behavior without each handler wiring it individually.
package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/playkit/dtg/internal/log"
)

// StackConfig configures the ingress middleware stack applied by NewRouter.
type StackConfig struct {
	EnableCORS     bool
	AllowedOrigins []string

	EnableSecurityHeaders bool

	EnableMetrics bool
	EnableLogging bool

	RateLimitEnabled   bool
	RateLimitRPS       int
	RateLimitBurst     int
	RateLimitWhitelist []string
}

// NewRouter constructs a chi router with the canonical middleware stack
// applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders)
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	r.Use(apiRateLimit(cfg.RateLimitEnabled, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitWhitelist))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes this module's HTTP surface: item management
// (add/start/pause/remove/list/get) layered over internal/manager, plus the
// operational endpoints (health, readiness, Prometheus metrics) a host
// deployment expects, all behind the canonical ingress middleware stack in
// internal/api/middleware.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playkit/dtg/internal/api/middleware"
	"github.com/playkit/dtg/internal/config"
	"github.com/playkit/dtg/internal/health"
	"github.com/playkit/dtg/internal/manager"
)

// Server wires a manager.Manager and a health.Manager behind an HTTP
// router. It holds no state of its own beyond those two collaborators.
type Server struct {
	mgr    *manager.Manager
	health *health.Manager
	cfg    config.APIConfig
}

// New builds a Server. hm may be nil, in which case /healthz and /readyz
// are not registered (a caller that doesn't want health endpoints served
// from this router, e.g. to expose them on a separate internal listener).
func New(mgr *manager.Manager, hm *health.Manager, cfg config.APIConfig) *Server {
	return &Server{mgr: mgr, health: hm, cfg: cfg}
}

// Routes builds the full handler: middleware stack plus every registered
// route.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimitEnabled:      s.cfg.RateLimitEnabled,
		RateLimitRPS:          s.cfg.RateLimitRPS,
		RateLimitBurst:        s.cfg.RateLimitBurst,
		RateLimitWhitelist:    s.cfg.RateLimitWhitelist,
	})

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/items", func(r chi.Router) {
		r.Post("/", s.handleAddItem)
		r.Get("/", s.handleListItems)
		r.Get("/{itemID}", s.handleGetItem)
		r.Post("/{itemID}/start", s.handleStartItem)
		r.Post("/{itemID}/pause", s.handlePauseItem)
		r.Delete("/{itemID}", s.handleRemoveItem)
	})

	return r
}

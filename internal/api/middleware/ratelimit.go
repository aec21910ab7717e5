// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig configures a sliding-window rate limiter.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	Whitelist    []string
}

// RateLimit builds a sliding-window rate limiting middleware over httprate,
// keyed by client IP, exempting any address in cfg.Whitelist.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.RequestLimit))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","message":"too many requests"}`))
		}),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.Whitelist) > 0 {
				ip, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					ip = r.RemoteAddr
				}
				for _, allowed := range cfg.Whitelist {
					if allowed == ip {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			limiter(next).ServeHTTP(w, r)
		})
	}
}

// apiRateLimit returns a rate limiter middleware configured from the API's own
// enabled/rps/burst/whitelist knobs; it is a passthrough when disabled.
// RPS is mapped onto httprate's requests-per-minute sliding window.
func apiRateLimit(enabled bool, rps, burst int, whitelist []string) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if rps <= 0 {
		rps = 100
	}
	limit := rps * 60
	if burst > 0 && burst > limit {
		limit = burst
	}
	return RateLimit(RateLimitConfig{
		RequestLimit: limit,
		WindowSize:   time.Minute,
		Whitelist:    whitelist,
	})
}

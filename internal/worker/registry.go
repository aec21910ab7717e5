// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"sync"
	"time"

	"github.com/playkit/dtg/internal/resilience"
)

// BreakerRegistry hands out one circuit breaker per origin host, created
// lazily on first use, mirroring internal/ratelimit.Limiter's per-origin
// bucket pattern.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker

	threshold, minAttempts int
	window, resetTimeout   time.Duration
}

// NewBreakerRegistry builds a registry whose breakers all share the given
// trip thresholds and timing.
func NewBreakerRegistry(threshold, minAttempts int, window, resetTimeout time.Duration) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:     make(map[string]*resilience.CircuitBreaker),
		threshold:    threshold,
		minAttempts:  minAttempts,
		window:       window,
		resetTimeout: resetTimeout,
	}
}

// For returns the breaker guarding origin, creating it on first request.
func (r *BreakerRegistry) For(origin string) *resilience.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[origin]
	if !ok {
		cb = resilience.NewCircuitBreaker(origin, r.threshold, r.minAttempts, r.window, r.resetTimeout)
		r.breakers[origin] = cb
	}
	return cb
}

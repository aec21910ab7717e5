// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus counters and gauges this module's
// worker and store emit: items by state, task throughput, transferred
// bytes, and circuit breaker state/trips.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtg_items_by_state",
		Help: "Current number of items in each lifecycle state",
	}, []string{"state"})

	TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtg_tasks_completed_total",
		Help: "Total download tasks completed, by logical type",
	}, []string{"type"})

	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtg_tasks_failed_total",
		Help: "Total download tasks that exhausted their retry budget, by logical type and outcome",
	}, []string{"type", "outcome"})

	BytesDownloaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtg_bytes_downloaded_total",
		Help: "Total bytes written to disk, by logical task type",
	}, []string{"type"})

	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtg_task_retry_attempts_total",
		Help: "Total retry attempts issued for a task",
	}, []string{"type"})
)

// SetItemState moves one item's weight in the ItemsByState gauge from its
// previous state to its new one. Calling this with from == to is a no-op.
func SetItemState(from, to string) {
	if from == to {
		return
	}
	if from != "" {
		ItemsByState.WithLabelValues(from).Dec()
	}
	ItemsByState.WithLabelValues(to).Inc()
}

var circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "dtg_circuit_breaker_state",
	Help: "Circuit breaker state by origin host (closed=1, half-open=1, open=1; others 0)",
}, []string{"origin", "state"})

var circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dtg_circuit_breaker_trips_total",
	Help: "Total number of circuit breaker trips to open, by origin host",
}, []string{"origin", "reason"})

var circuitStates = []string{"closed", "half-open", "open"}

// SetCircuitBreakerState records the active circuit breaker state for an
// origin host, zeroing the other two state labels so a dashboard can graph
// "state" as a single stacked value.
func SetCircuitBreakerState(origin, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(origin, s).Set(value)
	}
}

// RecordCircuitBreakerTrip increments the trip counter when a breaker opens.
func RecordCircuitBreakerTrip(origin, reason string) {
	circuitBreakerTrips.WithLabelValues(origin, reason).Inc()
}

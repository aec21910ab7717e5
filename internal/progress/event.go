// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package progress instantiates one finite state machine per item over
// internal/item.State, persists every transition before notifying
// observers, and folds per-task byte reports into the item's aggregate
// counters. It also satisfies internal/worker.Aggregator, so a worker
// reports outcomes here without either package importing the other.
package progress

// ItemEvent names a transition trigger in the item lifecycle.
type ItemEvent string

const (
	EventMetadataLoaded ItemEvent = "metadataLoaded"
	EventStart          ItemEvent = "start"
	EventPause          ItemEvent = "pause"
	EventResume         ItemEvent = "resume"
	EventInterrupt      ItemEvent = "interrupt"
	EventComplete       ItemEvent = "complete"
	EventRemove         ItemEvent = "remove"
	EventFail           ItemEvent = "fail"
	EventDBFailure      ItemEvent = "dbFailure"
)

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resume persists resume-token checkpoints independently of
// internal/store. Its primary store already carries a task's ResumeToken
// field, but that field is only as durable as the store backend the
// operator chose: a memory-backed store (or a crash mid-write on the bbolt
// file) loses every surrendered token with it. This package gives the
// worker a second place to record "task X was at byte offset N as of time
// T" (one row per task, overwritten by each Put and removed by Delete) that
// the sqlite backend keeps regardless of which primary store backend is
// running (the memory backend keeps it only in-process), so an
// operator can recover a stalled item's progress even after a memory-store
// restart wiped the task table itself.
package resume

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no checkpoint exists for the given key.
var ErrNotFound = errors.New("resume: not found")

// Checkpoint is one surrendered resume token, stamped with when it was
// recorded.
type Checkpoint struct {
	Token     []byte
	UpdatedAt time.Time
}

// Store is the durable key-value layer behind one task's resume
// checkpoints, keyed by the owning item id and the task's source URL.
type Store interface {
	// Put records or overwrites itemID/sourceURL's checkpoint.
	Put(ctx context.Context, itemID, sourceURL string, cp Checkpoint) error

	// Get returns itemID/sourceURL's most recently recorded checkpoint, or
	// ErrNotFound if none exists.
	Get(ctx context.Context, itemID, sourceURL string) (Checkpoint, error)

	// Delete removes one task's checkpoint, e.g. once it completes.
	Delete(ctx context.Context, itemID, sourceURL string) error

	// DeleteItem removes every checkpoint belonging to itemID, e.g. on
	// item removal.
	DeleteItem(ctx context.Context, itemID string) error

	// Close releases any resources (file handles, connections) the store
	// holds.
	Close() error
}

func compositeKey(itemID, sourceURL string) string {
	return itemID + "\x00" + sourceURL
}

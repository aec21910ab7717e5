// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists download tasks and item records so an item's
// progress survives a process restart. Three interchangeable backends
// (memory, bbolt, badger) satisfy the same Store interface and the same
// black-box test suite.
package store

import (
	"context"
	"errors"

	"github.com/playkit/dtg/internal/item"
)

// ErrNotFound is returned when an update targets a task or item id the
// store does not have a record for.
var ErrNotFound = errors.New("store: not found")

// Store is the durable key-value layer behind one item's tasks and the
// item records themselves.
type Store interface {
	// InsertTasks overwrites any pre-existing tasks for itemID with the
	// given batch.
	InsertTasks(ctx context.Context, itemID string, tasks []item.Task) error

	// ListTasks returns itemID's tasks ordered ascending by Order.
	ListTasks(ctx context.Context, itemID string) ([]item.Task, error)

	// UpdateTask persists a mutated task (used to store a resume token on
	// pause). It matches on (ItemID, SourceURL).
	UpdateTask(ctx context.Context, task item.Task) error

	// DeleteTask removes one task by (itemID, sourceURL), e.g. on
	// successful completion.
	DeleteTask(ctx context.Context, itemID, sourceURL string) error

	// DeleteItemTasks removes every task belonging to itemID, e.g. on
	// cancel or item removal.
	DeleteItemTasks(ctx context.Context, itemID string) error

	// PutItem upserts an item record.
	PutItem(ctx context.Context, it *item.Item) error

	// GetItem returns an item record, or ErrNotFound if none exists.
	GetItem(ctx context.Context, itemID string) (*item.Item, error)

	// DeleteItem removes an item record.
	DeleteItem(ctx context.Context, itemID string) error

	// ListItemsByState returns every item record in the given state.
	ListItemsByState(ctx context.Context, state item.State) ([]*item.Item, error)

	// Close releases any resources (file handles, connections) the store
	// holds.
	Close() error
}

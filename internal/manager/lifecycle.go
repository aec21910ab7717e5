// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"

	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/progress"
	"github.com/playkit/dtg/internal/worker"
)

// StartItem begins or resumes itemID's download: metadataLoaded/paused/
// interrupted all move to inProgress, each driven by a freshly constructed
// Worker over whatever tasks remain in the store. At most one worker runs
// per item at a time; calling StartItem on an already-active item is a
// no-op returning the item's current record.
func (m *Manager) StartItem(ctx context.Context, itemID string) (*item.Item, error) {
	if m.isActive(itemID) {
		return m.GetItem(ctx, itemID)
	}

	it, err := m.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var ev progress.ItemEvent
	switch it.State {
	case item.StateMetadataLoaded:
		ev = progress.EventStart
	case item.StatePaused, item.StateInterrupted:
		ev = progress.EventResume
	default:
		return nil, &dtgerr.InvalidStateError{ItemID: itemID, State: string(it.State), Op: "start"}
	}

	w := worker.New(itemID, worker.Deps{
		Store:      m.deps.Store,
		HTTP:       m.deps.HTTP,
		Limiter:    m.limiter,
		Breakers:   m.breakers,
		Aggregator: m.deps.Tracker,
		Resume:     m.deps.Resume,
	}, worker.Config{
		MaxConcurrentTasks: m.cfg.Worker.MaxConcurrentTasks,
		RetryBudget:        m.cfg.Worker.RetryBudget,
		BackoffBase:        m.cfg.Worker.BackoffBase,
		BackoffMax:         m.cfg.Worker.BackoffMax,
	})

	if _, err := m.deps.Tracker.Fire(ctx, itemID, ev); err != nil {
		return nil, err
	}

	m.setActive(itemID, w)
	w.Start(ctx)
	go func() {
		_ = w.Wait()
		m.clearActive(itemID)
	}()

	return m.GetItem(ctx, itemID)
}

// PauseItem stops itemID's active worker, surrendering a resume token for
// every in-flight task, and waits for the pause transition to commit. It is
// a no-op if the item has no running worker.
func (m *Manager) PauseItem(ctx context.Context, itemID string) (*item.Item, error) {
	m.mu.Lock()
	w, ok := m.active[itemID]
	m.mu.Unlock()
	if !ok {
		return m.GetItem(ctx, itemID)
	}

	w.Pause()
	return m.GetItem(ctx, itemID)
}

// RemoveItem permanently discards itemID: any active worker is canceled
// without surrendering a resume token, its tasks and item record are
// deleted from the store, and its on-disk tree is removed. Removal has no
// explicit lifecycle event of its own beyond progress.EventRemove; there is
// no separate "cancel" transition, since a canceled item is never resumed.
func (m *Manager) RemoveItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	w, ok := m.active[itemID]
	m.mu.Unlock()
	if ok {
		w.Cancel()
		m.clearActive(itemID)
	}

	if _, err := m.deps.Tracker.Fire(ctx, itemID, progress.EventRemove); err != nil {
		return err
	}

	if err := m.deps.Store.DeleteItemTasks(ctx, itemID); err != nil {
		return &dtgerr.DBFailureError{Op: "DeleteItemTasks", Err: err}
	}
	if err := m.deps.Store.DeleteItem(ctx, itemID); err != nil {
		return &dtgerr.DBFailureError{Op: "DeleteItem", Err: err}
	}
	if m.deps.Resume != nil {
		_ = m.deps.Resume.DeleteItem(ctx, itemID)
	}
	return removeItemTree(m.itemRoot(itemID))
}

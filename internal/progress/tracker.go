// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playkit/dtg/internal/fsm"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/log"
	"github.com/playkit/dtg/internal/metrics"
	"github.com/playkit/dtg/internal/store"
)

// Observer is notified after an item's state change or byte-progress
// update has already been persisted. Notifications for a given item arrive
// strictly in the order they were committed and never reenter store code,
// since they are all delivered from the Tracker's single dispatch
// goroutine.
type Observer interface {
	OnStateChanged(itemID string, from, to item.State)
	OnProgress(itemID string, downloadedSize, estimatedTotalSize int64)
}

type stateNotification struct {
	itemID   string
	from, to item.State
}

type progressNotification struct {
	itemID                         string
	downloadedSize, estimatedTotal int64
}

// Tracker owns one fsm.Machine per item and the store-backed persistence
// behind every transition. It is safe for concurrent use across items; a
// single item's transitions are serialized by its own machine's mutex plus
// Tracker's own lock while looking that machine up.
type Tracker struct {
	store store.Store

	mu       sync.Mutex
	machines map[string]*fsm.Machine[item.State, ItemEvent]

	observers []Observer
	stateCh   chan stateNotification
	progCh    chan progressNotification
	done      chan struct{}
}

// NewTracker builds a Tracker backed by st, delivering transitions to each
// of observers in registration order from one dedicated goroutine.
func NewTracker(st store.Store, observers ...Observer) *Tracker {
	t := &Tracker{
		store:     st,
		machines:  make(map[string]*fsm.Machine[item.State, ItemEvent]),
		observers: observers,
		stateCh:   make(chan stateNotification),
		progCh:    make(chan progressNotification),
		done:      make(chan struct{}),
	}
	go t.dispatchLoop()
	return t
}

// Close stops the dispatch goroutine once pending notifications drain.
func (t *Tracker) Close() {
	close(t.stateCh)
	close(t.progCh)
	<-t.done
}

func (t *Tracker) dispatchLoop() {
	defer close(t.done)
	for t.stateCh != nil || t.progCh != nil {
		select {
		case n, ok := <-t.stateCh:
			if !ok {
				t.stateCh = nil
				continue
			}
			for _, o := range t.observers {
				o.OnStateChanged(n.itemID, n.from, n.to)
			}
		case n, ok := <-t.progCh:
			if !ok {
				t.progCh = nil
				continue
			}
			for _, o := range t.observers {
				o.OnProgress(n.itemID, n.downloadedSize, n.estimatedTotal)
			}
		}
	}
}

func (t *Tracker) machineFor(ctx context.Context, itemID string, initial item.State) (*fsm.Machine[item.State, ItemEvent], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.machines[itemID]; ok {
		return m, nil
	}
	m, err := fsm.New(initial, t.transitions(itemID))
	if err != nil {
		return nil, err
	}
	t.machines[itemID] = m
	return m, nil
}

// Fire applies ev to itemID's machine, persisting the new state before
// returning and notifying observers only once that persist has committed.
func (t *Tracker) Fire(ctx context.Context, itemID string, ev ItemEvent) (item.State, error) {
	it, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	m, err := t.machineFor(ctx, itemID, it.State)
	if err != nil {
		return "", err
	}

	from := m.State()
	to, err := m.Fire(ctx, ev)
	if err != nil {
		return from, err
	}

	t.stateCh <- stateNotification{itemID: itemID, from: from, to: to}
	return to, nil
}

// transitions builds the item lifecycle graph (spec section 4.7) for one
// item id, with each edge's Action persisting the new state before the
// machine commits it.
func (t *Tracker) transitions(itemID string) []fsm.Transition[item.State, ItemEvent] {
	persist := func(ctx context.Context, from, to item.State, _ ItemEvent) error {
		it, err := t.store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		it.State = to
		it.UpdatedAt = time.Now()
		if err := t.store.PutItem(ctx, it); err != nil {
			return err
		}
		metrics.SetItemState(string(from), string(to))
		return nil
	}
	notTerminal := func(_ context.Context, from item.State, event ItemEvent) error {
		if from.IsTerminal() {
			return fmt.Errorf("item %s: %s is terminal, cannot apply %s", itemID, from, event)
		}
		return nil
	}

	return []fsm.Transition[item.State, ItemEvent]{
		{From: item.StateNew, Event: EventMetadataLoaded, To: item.StateMetadataLoaded, Action: persist},
		{From: item.StateMetadataLoaded, Event: EventStart, To: item.StateInProgress, Action: persist},
		{From: item.StateInProgress, Event: EventPause, To: item.StatePaused, Action: persist},
		{From: item.StateInProgress, Event: EventInterrupt, To: item.StateInterrupted, Action: persist},
		{From: item.StateInProgress, Event: EventComplete, To: item.StateCompleted, Action: persist},
		{From: item.StatePaused, Event: EventResume, To: item.StateInProgress, Action: persist},
		{From: item.StateInterrupted, Event: EventResume, To: item.StateInProgress, Action: persist},
		{From: item.StateInterrupted, Event: EventPause, To: item.StatePaused, Action: persist},
		{From: item.State(fsm.Wildcard), Event: EventRemove, To: item.StateRemoved, Guard: notTerminal, Action: persist},
		{From: item.State(fsm.Wildcard), Event: EventFail, To: item.StateFailed, Guard: notTerminal, Action: persist},
		{From: item.State(fsm.Wildcard), Event: EventDBFailure, To: item.StateDBFailure, Guard: notTerminal, Action: persist},
	}
}

// --- internal/worker.Aggregator, satisfied structurally (no import cycle) ---

// TaskStarted logs the start of a task's fetch; it has no state-machine
// consequence of its own.
func (t *Tracker) TaskStarted(itemID string, task item.Task) {
	log.WithComponent("progress").Debug().
		Str(log.FieldItemID, itemID).
		Str(log.FieldSourceURL, task.SourceURL).
		Msg("task started")
}

// TaskProgress folds one task's cumulative bytes into the item's aggregate
// counters and persists the result, so a crash mid-download loses at most
// the last unpersisted report rather than the whole item's progress.
func (t *Tracker) TaskProgress(itemID string, task item.Task, bytesSoFar int64) {
	ctx := context.Background()
	it, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return
	}
	it.RecordTaskProgress(item.PerTaskProgress{
		TaskID:         task.SourceURL,
		BytesSoFar:     bytesSoFar,
		EstimatedTotal: task.EstimatedSize,
	}, time.Now())
	if err := t.store.PutItem(ctx, it); err != nil {
		return
	}
	t.progCh <- progressNotification{itemID: itemID, downloadedSize: it.DownloadedSize, estimatedTotal: it.EstimatedTotalSize}
}

// TaskCompleted folds a finished task's bytes into completedBytes so they
// are never double-counted against a later task with the same id, then
// persists the result.
func (t *Tracker) TaskCompleted(itemID string, task item.Task) {
	ctx := context.Background()
	it, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return
	}
	it.ForgetTask(task.SourceURL)
	_ = t.store.PutItem(ctx, it)
}

// TaskFailed records the failing task's error as the item's last error.
// The item-level outcome (interrupted vs failed) is decided by whichever
// of ItemInterrupted/ItemCompleted the worker calls once all of an item's
// tasks have been attempted.
func (t *Tracker) TaskFailed(itemID string, task item.Task, err error) {
	ctx := context.Background()
	it, getErr := t.store.GetItem(ctx, itemID)
	if getErr != nil {
		return
	}
	it.LastError = err.Error()
	_ = t.store.PutItem(ctx, it)
}

// ItemPaused fires the pause transition.
func (t *Tracker) ItemPaused(itemID string) {
	_, _ = t.Fire(context.Background(), itemID, EventPause)
}

// ItemInterrupted records err as the item's last error and fires the
// interrupt transition.
func (t *Tracker) ItemInterrupted(itemID string, err error) {
	ctx := context.Background()
	if it, getErr := t.store.GetItem(ctx, itemID); getErr == nil {
		it.LastError = err.Error()
		_ = t.store.PutItem(ctx, it)
	}
	_, _ = t.Fire(ctx, itemID, EventInterrupt)
}

// ItemFailed records err as the item's last error and fires the terminal
// fail transition: spec section 4.6/4.7 distinguishes this from
// ItemInterrupted — a non-retryable 4xx or malformed response (terminal,
// item removed/reported by the caller) versus a retry-budget-exhausted 5xx
// (resumable).
func (t *Tracker) ItemFailed(itemID string, err error) {
	ctx := context.Background()
	if it, getErr := t.store.GetItem(ctx, itemID); getErr == nil {
		it.LastError = err.Error()
		_ = t.store.PutItem(ctx, it)
	}
	_, _ = t.Fire(ctx, itemID, EventFail)
}

// ItemCompleted fires the completion transition.
func (t *Tracker) ItemCompleted(itemID string) {
	_, _ = t.Fire(context.Background(), itemID, EventComplete)
}

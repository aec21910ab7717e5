// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package worker drives one item's download tasks to completion: bounded
// concurrency per item, per-origin rate limiting and circuit breaking,
// retry with doubling backoff, and atomic file writes. A worker reports
// progress and terminal outcomes through an Aggregator rather than holding
// a direct reference to the store or the item's state machine, so the two
// packages don't own each other.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/playkit/dtg/internal/httpclient"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/log"
	"github.com/playkit/dtg/internal/ratelimit"
	"github.com/playkit/dtg/internal/resume"
	"github.com/playkit/dtg/internal/store"
)

// Aggregator is the worker's only view onto the rest of the system: it
// reports what happened to a task or an item without knowing how that is
// persisted or turned into a state transition.
type Aggregator interface {
	TaskStarted(itemID string, task item.Task)
	TaskProgress(itemID string, task item.Task, bytesSoFar int64)
	TaskCompleted(itemID string, task item.Task)
	TaskFailed(itemID string, task item.Task, err error)
	ItemPaused(itemID string)
	ItemInterrupted(itemID string, err error)
	ItemFailed(itemID string, err error)
	ItemCompleted(itemID string)
}

// Config bounds one worker's concurrency and retry behavior. Its fields
// match the per-worker subset of internal/config.WorkerConfig; the other
// WorkerConfig fields have no counterpart here.
type Config struct {
	MaxConcurrentTasks int
	RetryBudget        int
	BackoffBase        time.Duration
	BackoffMax         time.Duration
}

// DefaultConfig matches internal/config.Default().Worker.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks: 4,
		RetryBudget:        5,
		BackoffBase:        500 * time.Millisecond,
		BackoffMax:         30 * time.Second,
	}
}

// Deps bundles the collaborators a worker needs, shared across every item a
// process drives concurrently. Resume is optional: a nil value simply skips
// the auxiliary checkpoint log and relies solely on Store's ResumeToken
// field.
type Deps struct {
	Store      store.Store
	HTTP       *httpclient.Client
	Limiter    *ratelimit.Limiter
	Breakers   *BreakerRegistry
	Aggregator Aggregator
	Resume     resume.Store
}

// Worker drives a single item's tasks. It is created fresh for each
// Start/Pause cycle; a paused worker is discarded, and a later resume
// constructs a new one over the same item id and the tasks still left in
// the store.
type Worker struct {
	itemID string
	deps   Deps
	cfg    Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	paused atomic.Bool
	runErr error
}

// New builds a Worker for itemID. Call Start to begin fetching.
func New(itemID string, deps Deps, cfg Config) *Worker {
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = 4
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	return &Worker{itemID: itemID, deps: deps, cfg: cfg}
}

// Start fetches ctx's parent item's pending tasks concurrently, up to
// cfg.MaxConcurrentTasks at a time, and returns immediately; call Wait to
// block for the outcome. Calling Start twice on the same Worker is a
// programmer error.
func (w *Worker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run(runCtx)
}

// Pause requests that in-flight fetches stop after their current write,
// surrendering a resume token, and that no new task start. It returns once
// the worker has fully stopped.
func (w *Worker) Pause() {
	w.paused.Store(true)
	w.stop()
}

// Cancel aborts the worker immediately without the paused semantics; the
// caller is expected to also remove the item's tasks from the store if this
// is a permanent cancellation rather than a pause.
func (w *Worker) Cancel() {
	w.stop()
}

func (w *Worker) stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// Wait blocks until the worker's run loop has finished and returns its
// outcome: nil on full completion, context.Canceled on pause/cancel, or the
// first task error otherwise, whether terminal or an exhausted retry budget.
func (w *Worker) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	return w.runErr
}

func (w *Worker) run(ctx context.Context) {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	defer close(done)

	logger := log.WithComponent("worker").With().Str(log.FieldItemID, w.itemID).Logger()

	tasks, err := w.deps.Store.ListTasks(ctx, w.itemID)
	if err != nil {
		w.runErr = err
		w.deps.Aggregator.ItemInterrupted(w.itemID, err)
		return
	}
	if len(tasks) == 0 {
		w.deps.Aggregator.ItemCompleted(w.itemID)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(w.cfg.MaxConcurrentTasks))

	for _, t := range tasks {
		t := t
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return w.runTask(gctx, t)
		})
	}

	runErr := g.Wait()
	w.runErr = runErr

	switch {
	case runErr == nil:
		w.deps.Aggregator.ItemCompleted(w.itemID)
	case w.paused.Load():
		logger.Info().Msg("item paused")
		w.deps.Aggregator.ItemPaused(w.itemID)
	case errors.Is(runErr, context.Canceled):
		// Cancel() without Pause(): the caller owns cleanup, no aggregator
		// callback is expected.
	default:
		var termErr *terminalTaskError
		if errors.As(runErr, &termErr) {
			logger.Warn().Err(termErr.err).Msg("item failed terminally")
			w.deps.Aggregator.ItemFailed(w.itemID, termErr.err)
		} else {
			logger.Warn().Err(runErr).Msg("item interrupted")
			w.deps.Aggregator.ItemInterrupted(w.itemID, runErr)
		}
	}
}

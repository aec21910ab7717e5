// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager is the explicit context handle this module's caller
// constructs once and drives every item through: it wires the HLS
// localizer (parser, selector, planner, rewriter) and the download
// orchestrator (store, worker, progress tracker) together behind
// AddItem/StartItem/PauseItem/RemoveItem, without either subsystem holding
// a reference back to this package (see SPEC_FULL.md design notes on
// cyclic ownership and global state).
package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playkit/dtg/internal/config"
	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/httpclient"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/log"
	"github.com/playkit/dtg/internal/pathutil"
	"github.com/playkit/dtg/internal/progress"
	"github.com/playkit/dtg/internal/ratelimit"
	"github.com/playkit/dtg/internal/resume"
	"github.com/playkit/dtg/internal/store"
	"github.com/playkit/dtg/internal/worker"
	"github.com/rs/zerolog"
)

// Deps bundles the collaborators a Manager needs. Store and Tracker are
// shared across every item a process drives; HTTP is the same client the
// worker uses, so metadata loads and segment fetches carry one identity.
// Resume is optional: if nil, New opens one per cfg.ResumeBackend/DataDir.
type Deps struct {
	Store   store.Store
	HTTP    *httpclient.Client
	Tracker *progress.Tracker
	Resume  resume.Store
}

// Manager is the public entry point this module exposes to a host
// application: add, start, pause, and remove items, each call returning
// synchronously once its state change is persisted.
type Manager struct {
	deps     Deps
	cfg      config.FileConfig
	itemsDir string

	limiter  *ratelimit.Limiter
	breakers *worker.BreakerRegistry

	mu     sync.Mutex
	active map[string]*worker.Worker
}

// New builds a Manager rooted at cfg.DataDir/items, sharing deps across
// every item it will ever drive. If deps.Resume is nil, New opens one per
// cfg.ResumeBackend/cfg.DataDir, falling back to an in-memory checkpoint
// log (logged, not fatal) if that open fails — the auxiliary log is a
// best-effort aid to recovery, not load-bearing for correctness.
func New(cfg config.FileConfig, deps Deps) *Manager {
	if deps.Resume == nil {
		r, err := resume.Open(cfg.ResumeBackend, cfg.DataDir)
		if err != nil {
			log.WithComponent("manager").Warn().Err(err).Msg("opening resume checkpoint log failed, falling back to memory")
			r = resume.NewMemoryStore()
		}
		deps.Resume = r
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		itemsDir: filepath.Join(cfg.DataDir, "items"),
		limiter: ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.Worker.RateLimitPerOrigin,
			Burst:             cfg.Worker.RateLimitBurst,
		}),
		breakers: worker.NewBreakerRegistry(0, 0, 0, 0),
		active:   make(map[string]*worker.Worker),
	}
}

// ActiveCount reports how many items currently have a running worker, for
// internal/health's ActiveItemsChecker.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// OldestInterrupted reports the earliest UpdatedAt among items currently in
// the interrupted state, for internal/health's StalledItemsChecker.
func (m *Manager) OldestInterrupted(ctx context.Context) (bool, time.Time) {
	items, err := m.deps.Store.ListItemsByState(ctx, item.StateInterrupted)
	if err != nil || len(items) == 0 {
		return false, time.Time{}
	}
	oldest := items[0].UpdatedAt
	for _, it := range items[1:] {
		if it.UpdatedAt.Before(oldest) {
			oldest = it.UpdatedAt
		}
	}
	return true, oldest
}

// Ping is a cheap store round-trip for internal/health's StoreChecker.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.deps.Store.ListItemsByState(ctx, item.StateRemoved)
	return err
}

// GetItem returns itemID's current record, or dtgerr.ErrItemNotFound.
func (m *Manager) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	it, err := m.deps.Store.GetItem(ctx, itemID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, dtgerr.ErrItemNotFound
		}
		return nil, &dtgerr.DBFailureError{Op: "GetItem", Err: err}
	}
	return it, nil
}

// ListItems returns every item record in the given state.
func (m *Manager) ListItems(ctx context.Context, state item.State) ([]*item.Item, error) {
	items, err := m.deps.Store.ListItemsByState(ctx, state)
	if err != nil {
		return nil, &dtgerr.DBFailureError{Op: "ListItemsByState", Err: err}
	}
	return items, nil
}

func (m *Manager) itemRoot(itemID string) string {
	return filepath.Join(m.itemsDir, pathutil.SafeItemID(itemID))
}

// isActive reports whether itemID currently has a running worker.
func (m *Manager) isActive(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[itemID]
	return ok
}

func (m *Manager) setActive(itemID string, w *worker.Worker) {
	m.mu.Lock()
	m.active[itemID] = w
	m.mu.Unlock()
}

func (m *Manager) clearActive(itemID string) {
	m.mu.Lock()
	delete(m.active, itemID)
	m.mu.Unlock()
}

// ensureDirs creates the item root and its four type subdirectories ahead
// of task persistence, per spec section 4.3.
func ensureDirs(root string) error {
	for _, dir := range []pathutil.TaskType{
		pathutil.TaskTypeVideo, pathutil.TaskTypeAudio, pathutil.TaskTypeText, pathutil.TaskTypeKey,
	} {
		if err := os.MkdirAll(filepath.Join(root, string(dir)), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	return nil
}

// removeItemTree deletes an item's entire on-disk directory. A missing
// directory (already cleaned up, or never created) is not an error.
func removeItemTree(root string) error {
	return os.RemoveAll(root)
}

// Close releases the resume checkpoint log Manager opened in New. It does
// not close deps.Store or deps.Tracker, since the caller constructed and
// owns both of those independently of this Manager.
func (m *Manager) Close() error {
	if m.deps.Resume != nil {
		return m.deps.Resume.Close()
	}
	return nil
}

func (m *Manager) logger() zerolog.Logger {
	return log.WithComponent("manager")
}

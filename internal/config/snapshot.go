// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/playkit/dtg/internal/log"
	"github.com/rs/zerolog"
)

// Snapshot is an immutable, epoch-stamped configuration value. Readers hold
// a Snapshot for the lifetime of one operation (e.g. one download task) so
// that a concurrent reload never changes behavior mid-operation.
type Snapshot struct {
	Config FileConfig
	Epoch  uint64
}

// Holder holds the current Snapshot behind an atomic pointer and can
// hot-reload it from the configured file.
type Holder struct {
	reloadOpMu sync.Mutex
	epoch      atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	loader     *Loader
	configPath string
	configDir  string
	configFile string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- *Snapshot
}

// NewHolder creates a Holder seeded with an already-loaded configuration.
func NewHolder(initial FileConfig, loader *Loader, configPath string) *Holder {
	h := &Holder{
		loader:     loader,
		configPath: configPath,
		logger:     log.WithComponent("config"),
	}
	h.swap(&Snapshot{Config: initial})
	return h
}

// Current returns the current immutable snapshot.
func (h *Holder) Current() *Snapshot {
	return h.snapshot.Load()
}

// Get is a convenience accessor for the current FileConfig value.
func (h *Holder) Get() FileConfig {
	if s := h.Current(); s != nil {
		return s.Config
	}
	return FileConfig{}
}

func (h *Holder) swap(next *Snapshot) {
	if next == nil {
		return
	}
	next.Epoch = h.epoch.Add(1)
	h.snapshot.Store(next)
}

// Reload re-reads and validates the configured file. If loading or
// validation fails the current snapshot is left untouched and the error is
// returned; a bad file on disk never displaces a good running config.
func (h *Holder) Reload(context.Context) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}

	next := &Snapshot{Config: newCfg}
	h.swap(next)
	h.notify(next)

	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Uint64("epoch", next.Epoch).Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the configured file for changes and triggers Reload
// on write/create/rename, debounced to absorb editors that write in bursts.
// If no configPath was set (env-and-defaults only), this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str(log.FieldEvent, "config.watcher_disabled").Msg("no config file; watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher
	h.configDir = filepath.Dir(h.configPath)
	h.configFile = filepath.Base(h.configPath)

	if err := watcher.Add(h.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().Str(log.FieldEvent, "config.watcher_started").Str("path", h.configPath).Msg("watching config file")
	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = h.watcher.Close()
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != h.configFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Str(log.FieldEvent, "config.auto_reload_failed").Msg("automatic reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the file watcher, if one is running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// Subscribe registers a channel that receives every successfully reloaded
// Snapshot. Sends are non-blocking: a full channel drops the notification
// rather than stalling the watcher loop.
func (h *Holder) Subscribe(ch chan<- *Snapshot) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(snap *Snapshot) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- snap:
		default:
			h.logger.Warn().Str(log.FieldEvent, "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/playkit/dtg/internal/config"
	"github.com/playkit/dtg/internal/log"
)

// PerformStartupChecks validates the environment and configuration before
// the daemon starts accepting items.
func PerformStartupChecks(ctx context.Context, cfg config.FileConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	logger.Info().Str("path", cfg.DataDir).Msg("data directory is writable")

	if err := checkListenAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}
	logger.Info().Str("addr", cfg.ListenAddr).Msg("listen address is valid")

	if err := checkWorkerConfig(cfg.Worker); err != nil {
		return fmt.Errorf("worker configuration invalid: %w", err)
	}

	switch cfg.StoreBackend {
	case config.StoreBackendMemory, config.StoreBackendBolt, config.StoreBackendBadger:
	default:
		return fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == config.StoreBackendMemory {
		logger.Warn().Msg("store backend is memory; items will not survive a restart")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(path string) error {
	if path == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("cannot create directory: %s: %w", path, err)
	}
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	_ = os.Remove(testFile)
	return nil
}

func checkListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}

func checkWorkerConfig(w config.WorkerConfig) error {
	if w.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("worker.max_concurrent_tasks_per_item must be > 0")
	}
	if w.MaxConcurrentItems <= 0 {
		return fmt.Errorf("worker.max_concurrent_items must be > 0")
	}
	if w.RequestTimeout <= 0 {
		return fmt.Errorf("worker.request_timeout must be > 0")
	}
	return nil
}

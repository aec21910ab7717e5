// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command dtg is the thin daemon wrapping internal/manager: it loads
// configuration, wires the shared store/HTTP-client/progress-tracker
// collaborators, and serves the item-management/health/metrics HTTP
// surface until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playkit/dtg/internal/api"
	"github.com/playkit/dtg/internal/config"
	"github.com/playkit/dtg/internal/health"
	"github.com/playkit/dtg/internal/httpclient"
	dtglog "github.com/playkit/dtg/internal/log"
	"github.com/playkit/dtg/internal/manager"
	"github.com/playkit/dtg/internal/progress"
	"github.com/playkit/dtg/internal/store"
	"github.com/playkit/dtg/internal/telemetry"
	"github.com/playkit/dtg/internal/useragent"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dtg %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	dtglog.Configure(dtglog.Config{Level: "info", Service: "dtg", Version: version})
	logger := dtglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	dtglog.Configure(dtglog.Config{Level: cfg.LogLevel, Service: "dtg", Version: version})
	logger = dtglog.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.check_failed").Msg("startup checks failed")
	}

	var tp *telemetry.Provider
	if cfg.Telemetry.TracingEnabled {
		tp, err = telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        true,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
			ExporterType:   cfg.Telemetry.OTLPProtocol,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			SamplingRate:   1.0,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()
	}

	st, err := store.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Msg("failed to open task store")
	}
	defer func() {
		if closer, ok := st.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn().Err(err).Msg("store close failed")
			}
		}
	}()

	httpClient := httpclient.New(httpclient.Config{
		Timeout:   cfg.Worker.RequestTimeout,
		UserAgent: useragent.Build(version, ""),
	})

	tracker := progress.NewTracker(st)
	defer tracker.Close()

	mgr := manager.New(cfg, manager.Deps{Store: st, HTTP: httpClient, Tracker: tracker})
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Warn().Err(err).Msg("manager close failed")
		}
	}()

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewStoreChecker(mgr.Ping))
	hm.RegisterChecker(health.NewActiveItemsChecker(mgr.ActiveCount))
	hm.RegisterChecker(health.NewStalledItemsChecker(func() (bool, time.Time) {
		return mgr.OldestInterrupted(context.Background())
	}, 15*time.Minute))

	srv := api.New(mgr, hm, cfg.API)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("event", "startup").
			Str("version", version).
			Str("commit", commit).
			Str("build_date", buildDate).
			Str("addr", cfg.ListenAddr).
			Str("store_backend", string(cfg.StoreBackend)).
			Str("resume_backend", string(cfg.ResumeBackend)).
			Msg("starting dtg")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Str("event", "server.listen_failed").Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
}

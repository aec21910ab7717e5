// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeYAML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoader_DefaultsOnly(t *testing.T) {
	loader := NewLoaderWithEnv("", func(string) (string, bool) { return "", false })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtg.yaml")
	writeYAML(t, path, map[string]any{
		"data_dir":      "/srv/dtg",
		"store_backend": "badger",
	})

	loader := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "/srv/dtg", cfg.DataDir)
	require.Equal(t, StoreBackendBadger, cfg.StoreBackend)
	// untouched fields keep their defaults
	require.Equal(t, Default().Worker.MaxConcurrentItems, cfg.Worker.MaxConcurrentItems)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtg.yaml")
	writeYAML(t, path, map[string]any{"data_dir": "/from/file"})

	env := map[string]string{"DTG_DATA_DIR": "/from/env"}
	loader := NewLoaderWithEnv(path, func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "/from/env", cfg.DataDir)
}

func TestLoader_MissingFileErrors(t *testing.T) {
	loader := NewLoaderWithEnv("/does/not/exist.yaml", func(string) (string, bool) { return "", false })
	_, err := loader.Load()
	require.Error(t, err)
}

func TestValidate_RejectsBadStoreBackend(t *testing.T) {
	cfg := Default()
	cfg.StoreBackend = "oracle"
	require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestValidate_RejectsBadResumeBackend(t *testing.T) {
	cfg := Default()
	cfg.ResumeBackend = "redis"
	require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestLoader_EnvOverridesResumeBackend(t *testing.T) {
	env := map[string]string{"DTG_RESUME_BACKEND": "memory"}
	loader := NewLoaderWithEnv("", func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, ResumeBackendMemory, cfg.ResumeBackend)
}

func TestValidate_RejectsRateLimitEnabledWithZeroRPS(t *testing.T) {
	cfg := Default()
	cfg.API.RateLimitEnabled = true
	cfg.API.RateLimitRPS = 0
	require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestLoader_EnvOverridesAPIAllowedOrigins(t *testing.T) {
	env := map[string]string{"DTG_API_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com"}
	loader := NewLoaderWithEnv("", func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.API.AllowedOrigins)
}

func TestValidate_RejectsExplicitPolicyWithoutLanguages(t *testing.T) {
	cfg := Default()
	cfg.Selection.AudioLanguagePolicy = LanguagePolicyExplicit
	cfg.Selection.AudioLanguages = nil
	require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestValidate_RejectsBackoffMaxBelowBase(t *testing.T) {
	cfg := Default()
	cfg.Worker.BackoffBase = 10
	cfg.Worker.BackoffMax = 5
	require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestHolder_ReloadSwapsSnapshotOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtg.yaml")
	writeYAML(t, path, map[string]any{"data_dir": "/v1"})

	loader := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false })
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	require.Equal(t, "/v1", h.Get().DataDir)
	firstEpoch := h.Current().Epoch

	writeYAML(t, path, map[string]any{"data_dir": "/v2"})
	require.NoError(t, h.Reload(nil))
	require.Equal(t, "/v2", h.Get().DataDir)
	require.Greater(t, h.Current().Epoch, firstEpoch)
}

func TestHolder_ReloadKeepsOldSnapshotOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtg.yaml")
	writeYAML(t, path, map[string]any{"data_dir": "/v1"})

	loader := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false })
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	writeYAML(t, path, map[string]any{"data_dir": "", "store_backend": "bolt"})

	err = h.Reload(nil)
	require.Error(t, err)
	require.Equal(t, "/v1", h.Get().DataDir)
}

func TestHolder_SubscribeReceivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtg.yaml")
	writeYAML(t, path, map[string]any{"data_dir": "/v1"})

	loader := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false })
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	ch := make(chan *Snapshot, 1)
	h.Subscribe(ch)

	writeYAML(t, path, map[string]any{"data_dir": "/v2"})
	require.NoError(t, h.Reload(nil))

	select {
	case snap := <-ch:
		require.Equal(t, "/v2", snap.Config.DataDir)
	default:
		t.Fatal("expected reload notification on subscribed channel")
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads a FileConfig from disk (if configPath is non-empty) starting
// from Default(), then overlays DTG_-prefixed environment variables.
type Loader struct {
	configPath string
	env        *envOverlay
}

// NewLoader creates a loader reading configPath (may be empty, meaning
// env-and-defaults only) using the process environment.
func NewLoader(configPath string) *Loader {
	return NewLoaderWithEnv(configPath, os.LookupEnv)
}

// NewLoaderWithEnv creates a loader with an injected environment lookup,
// for tests that must not depend on process-global environment state.
func NewLoaderWithEnv(configPath string, lookup envLookupFunc) *Loader {
	return &Loader{configPath: configPath, env: newEnvOverlay(lookup)}
}

// Load reads and validates the configuration, returning the Default() values
// overlaid with file contents (if configPath is set) and environment
// variables, in that precedence order (env wins over file, file wins over
// default).
func (l *Loader) Load() (FileConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		raw, err := os.ReadFile(l.configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return FileConfig{}, fmt.Errorf("config file %s: %w", l.configPath, err)
			}
			return FileConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	cfg = l.env.apply(cfg)

	if err := Validate(cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

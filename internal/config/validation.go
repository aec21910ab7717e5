// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects configurations that would leave the worker or selector
// in an unusable state. It is called on every Load and on every Reload, so
// a malformed hot-reload never replaces a good running configuration.
func Validate(cfg FileConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	switch cfg.StoreBackend {
	case StoreBackendMemory, StoreBackendBolt, StoreBackendBadger:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, cfg.StoreBackend)
	}
	switch cfg.ResumeBackend {
	case ResumeBackendMemory, ResumeBackendSqlite, "":
	default:
		return fmt.Errorf("%w: unknown resume_backend %q", ErrInvalidConfig, cfg.ResumeBackend)
	}
	if cfg.Worker.MaxConcurrentItems < 1 {
		return fmt.Errorf("%w: worker.max_concurrent_items must be >= 1", ErrInvalidConfig)
	}
	if cfg.Worker.MaxConcurrentTasks < 1 {
		return fmt.Errorf("%w: worker.max_concurrent_tasks_per_item must be >= 1", ErrInvalidConfig)
	}
	if cfg.Worker.RetryBudget < 0 {
		return fmt.Errorf("%w: worker.retry_budget must be >= 0", ErrInvalidConfig)
	}
	if cfg.Worker.BackoffBase <= 0 || cfg.Worker.BackoffMax <= 0 {
		return fmt.Errorf("%w: worker.backoff_base and backoff_max must be positive", ErrInvalidConfig)
	}
	if cfg.Worker.BackoffMax < cfg.Worker.BackoffBase {
		return fmt.Errorf("%w: worker.backoff_max must be >= backoff_base", ErrInvalidConfig)
	}
	if cfg.Worker.RequestTimeout <= 0 {
		return fmt.Errorf("%w: worker.request_timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Worker.RateLimitPerOrigin <= 0 {
		return fmt.Errorf("%w: worker.rate_limit_per_origin_rps must be positive", ErrInvalidConfig)
	}
	switch cfg.Selection.AudioLanguagePolicy {
	case LanguagePolicyAll, LanguagePolicyNone, LanguagePolicyExplicit:
	default:
		return fmt.Errorf("%w: unknown selection.audio_language_policy %q", ErrInvalidConfig, cfg.Selection.AudioLanguagePolicy)
	}
	switch cfg.Selection.TextLanguagePolicy {
	case LanguagePolicyAll, LanguagePolicyNone, LanguagePolicyExplicit:
	default:
		return fmt.Errorf("%w: unknown selection.text_language_policy %q", ErrInvalidConfig, cfg.Selection.TextLanguagePolicy)
	}
	if cfg.API.RateLimitEnabled && cfg.API.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: api.rate_limit_rps must be positive when api.rate_limit_enabled", ErrInvalidConfig)
	}
	if cfg.Selection.AudioLanguagePolicy == LanguagePolicyExplicit && len(cfg.Selection.AudioLanguages) == 0 {
		return fmt.Errorf("%w: selection.audio_language_policy=explicit requires audio_languages", ErrInvalidConfig)
	}
	if cfg.Selection.TextLanguagePolicy == LanguagePolicyExplicit && len(cfg.Selection.TextLanguages) == 0 {
		return fmt.Errorf("%w: selection.text_language_policy=explicit requires text_languages", ErrInvalidConfig)
	}
	return nil
}

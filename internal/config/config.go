// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and hot-reloads this module's runtime configuration:
// a YAML file overlaid with environment variables, exposed as an immutable
// snapshot behind an atomic pointer so readers never observe a torn update.
package config

import "time"

// StoreBackend selects the task/resume store implementation.
type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendBolt   StoreBackend = "bolt"
	StoreBackendBadger StoreBackend = "badger"
)

// ResumeBackend selects the durable checkpoint log internal/resume writes
// surrendered resume tokens to, independent of StoreBackend.
type ResumeBackend string

const (
	ResumeBackendSqlite ResumeBackend = "sqlite"
	ResumeBackendMemory ResumeBackend = "memory"
)

// LanguagePolicy selects which audio/text renditions a selector admits.
type LanguagePolicy string

const (
	LanguagePolicyAll      LanguagePolicy = "all"
	LanguagePolicyNone     LanguagePolicy = "none"
	LanguagePolicyExplicit LanguagePolicy = "explicit"
)

// SelectionConfig holds rendition-selection settings loaded from the
// environment and validated here. Nothing outside this package reads it, so
// a caller's per-item SelectionOptions is not filled in from it.
type SelectionConfig struct {
	PreferredCodecs     []string       `yaml:"preferred_codecs"`
	MinBitrateH264      int            `yaml:"min_bitrate_h264"`
	MinBitrateHEVC      int            `yaml:"min_bitrate_hevc"`
	AudioLanguagePolicy LanguagePolicy `yaml:"audio_language_policy"`
	AudioLanguages      []string       `yaml:"audio_languages"`
	TextLanguagePolicy  LanguagePolicy `yaml:"text_language_policy"`
	TextLanguages       []string       `yaml:"text_languages"`
}

// WorkerConfig bounds the download worker's concurrency and resilience.
type WorkerConfig struct {
	MaxConcurrentItems int           `yaml:"max_concurrent_items"`
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks_per_item"`
	RetryBudget        int           `yaml:"retry_budget"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	BackoffMax         time.Duration `yaml:"backoff_max"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RateLimitPerOrigin float64       `yaml:"rate_limit_per_origin_rps"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
}

// APIConfig controls the HTTP ingress this module exposes for item
// management, health, and metrics, mirroring the teacher's AppConfig-driven
// rate-limit/CORS knobs but scoped to this module's own endpoints.
type APIConfig struct {
	AllowedOrigins     []string `yaml:"allowed_origins"`
	RateLimitEnabled   bool     `yaml:"rate_limit_enabled"`
	RateLimitRPS       int      `yaml:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	RateLimitWhitelist []string `yaml:"rate_limit_whitelist"`
}

// TelemetryConfig toggles tracing export. Metrics and logging are always on
// (ambient, per this module's logging/metrics packages); tracing is the only
// piece with an external dependency (a collector endpoint) worth gating.
type TelemetryConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPProtocol   string `yaml:"otlp_protocol"` // "grpc" or "http"
	ServiceName    string `yaml:"service_name"`
}

// FileConfig is the on-disk (and env-overlaid) shape of this module's
// configuration.
type FileConfig struct {
	DataDir       string          `yaml:"data_dir"`
	StoreBackend  StoreBackend    `yaml:"store_backend"`
	ResumeBackend ResumeBackend   `yaml:"resume_backend"`
	LogLevel      string          `yaml:"log_level"`
	ListenAddr    string          `yaml:"listen_addr"`
	Worker        WorkerConfig    `yaml:"worker"`
	Selection     SelectionConfig `yaml:"selection"`
	API           APIConfig       `yaml:"api"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Default returns the built-in configuration used when no file or env
// override is present.
func Default() FileConfig {
	return FileConfig{
		DataDir:       "./data",
		StoreBackend:  StoreBackendBolt,
		ResumeBackend: ResumeBackendSqlite,
		LogLevel:      "info",
		ListenAddr:    "127.0.0.1:9191",
		Worker: WorkerConfig{
			MaxConcurrentItems: 2,
			MaxConcurrentTasks: 4,
			RetryBudget:        5,
			BackoffBase:        500 * time.Millisecond,
			BackoffMax:         30 * time.Second,
			RequestTimeout:     30 * time.Second,
			RateLimitPerOrigin: 8,
			RateLimitBurst:     16,
		},
		Selection: SelectionConfig{
			PreferredCodecs:     []string{"hevc", "h264"},
			MinBitrateH264:      180_000,
			MinBitrateHEVC:      120_000,
			AudioLanguagePolicy: LanguagePolicyAll,
			TextLanguagePolicy:  LanguagePolicyNone,
		},
		API: APIConfig{
			RateLimitEnabled: true,
			RateLimitRPS:     100,
			RateLimitBurst:   200,
		},
		Telemetry: TelemetryConfig{
			TracingEnabled: false,
			OTLPProtocol:   "grpc",
			ServiceName:    "dtg",
		},
	}
}

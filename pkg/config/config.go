package config

import "time"

// Config is the root configuration structure for sitewatch. It contains
// all configuration sections for the compliance engine, the embedding
// provider, caching, report storage, retention, telemetry, and watch mode.
type Config struct {
	// Engine contains the tunable parameters of the compliance engine:
	// matching threshold, tie epsilon, timing overrun factor, and the
	// severity policy.
	Engine EngineConfig `yaml:"engine"`

	// Provider contains the embedding provider configuration.
	Provider ProviderConfig `yaml:"provider"`

	// Cache contains the embedding cache configuration.
	Cache CacheConfig `yaml:"cache"`

	// Storage contains the run record storage configuration.
	Storage StorageConfig `yaml:"storage"`

	// Retention contains the run record retention policy.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch contains configuration for monitor mode.
	Watch WatchConfig `yaml:"watch"`
}

// EngineConfig contains the compliance engine tunables.
type EngineConfig struct {
	// SimilarityThreshold is the minimum embedding similarity for an
	// observed action to match a procedure step. The bound is closed.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// ScoreEpsilon is the tolerance within which two step scores are
	// considered tied.
	ScoreEpsilon float64 `yaml:"score_epsilon"`

	// OverrunFactor scales a step's expected duration into its allowed
	// duration for the timing check.
	OverrunFactor float64 `yaml:"overrun_factor"`

	// SeverityOverrides replaces the default severity per deviation kind,
	// keyed by kind name (e.g. "wrong_zone: medium").
	SeverityOverrides map[string]string `yaml:"severity_overrides"`

	// EscalationRules override a deviation's severity when a boolean
	// condition over the deviation holds. Rules are evaluated in order;
	// the last matching rule wins.
	EscalationRules []EscalationRule `yaml:"escalation_rules"`
}

// EscalationRule is one conditional severity override.
type EscalationRule struct {
	// When is a boolean expression over the variables kind, severity,
	// score, step, timestamp, and zone.
	When string `yaml:"when"`

	// Severity is the severity to assign when the condition holds.
	Severity string `yaml:"severity"`
}

// ProviderConfig contains the embedding provider configuration.
type ProviderConfig struct {
	// Name identifies this provider in logs and metrics.
	Name string `yaml:"name"`

	// Type is the provider type: "openai", "openai-compatible", or "local".
	Type string `yaml:"type"`

	// BaseURL is the API base URL (e.g. "https://api.openai.com/v1").
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Prefer setting it via the
	// SITEWATCH_PROVIDER_API_KEY environment variable over the file.
	APIKey string `yaml:"api_key"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for retryable failures.
	MaxRetries int `yaml:"max_retries"`

	// HealthCheckInterval is how often the background health checker
	// probes the provider. Only used in watch mode.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// CacheConfig contains the embedding cache configuration.
type CacheConfig struct {
	// Enabled turns the embedding cache on.
	Enabled bool `yaml:"enabled"`

	// MaxEntries bounds the in-memory layer. Least recently used entries
	// are evicted beyond this.
	MaxEntries int `yaml:"max_entries"`

	// Path is the persistent SQLite cache file. Empty disables the
	// persistent layer; the in-memory layer still applies.
	Path string `yaml:"path"`
}

// StorageConfig contains the run record storage configuration.
type StorageConfig struct {
	// Backend selects the storage backend: "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file (sqlite backend only).
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite busy timeout.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains the run record retention policy.
type RetentionConfig struct {
	// Enabled turns scheduled pruning on (watch mode only; the report
	// prune command works regardless).
	Enabled bool `yaml:"enabled"`

	// RetentionDays is the number of days to keep run records.
	// 0 keeps records forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the total record count. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete exports records to JSON before pruning them.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archive files.
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text".
	Format string `yaml:"format"`

	// AddSource includes file and line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns metric recording and the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address (watch mode).
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`
}

// WatchConfig contains monitor mode configuration.
type WatchConfig struct {
	// ActionsDir is the directory watched for recognizer output files.
	ActionsDir string `yaml:"actions_dir"`

	// SOPPath is the procedure definition applied to new action streams.
	SOPPath string `yaml:"sop_path"`

	// DebounceInterval is the quiet period after a file change before
	// the stream is (re)analyzed.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

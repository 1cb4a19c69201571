package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultSimilarityThreshold = 0.70
	DefaultScoreEpsilon        = 1e-6
	DefaultOverrunFactor       = 1.5

	DefaultProviderName        = "openai"
	DefaultProviderType        = "openai"
	DefaultProviderBaseURL     = "https://api.openai.com/v1"
	DefaultProviderModel       = "text-embedding-3-small"
	DefaultProviderTimeout     = 30 * time.Second
	DefaultProviderMaxRetries  = 3
	DefaultHealthCheckInterval = 30 * time.Second

	DefaultCacheMaxEntries = 4096

	DefaultStorageBackend     = "sqlite"
	DefaultStoragePath        = "data/sitewatch.db"
	DefaultStorageBusyTimeout = 5 * time.Second

	DefaultRetentionDays = 90
	DefaultPruneSchedule = "0 3 * * *"
	DefaultArchivePath   = "data/archives/"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsListenAddress = ":9090"
	DefaultMetricsNamespace     = "sitewatch"

	DefaultWatchDebounce = 250 * time.Millisecond
)

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any unset fields. It never
// overrides a value the user has set.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.SimilarityThreshold == 0 {
		cfg.Engine.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Engine.ScoreEpsilon == 0 {
		cfg.Engine.ScoreEpsilon = DefaultScoreEpsilon
	}
	if cfg.Engine.OverrunFactor == 0 {
		cfg.Engine.OverrunFactor = DefaultOverrunFactor
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProviderName
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = DefaultProviderType
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultProviderModel
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = DefaultProviderMaxRetries
	}
	if cfg.Provider.HealthCheckInterval == 0 {
		cfg.Provider.HealthCheckInterval = DefaultHealthCheckInterval
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	if cfg.Retention.RetentionDays == 0 {
		cfg.Retention.RetentionDays = DefaultRetentionDays
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultPruneSchedule
	}
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultArchivePath
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Watch.DebounceInterval == 0 {
		cfg.Watch.DebounceInterval = DefaultWatchDebounce
	}
}

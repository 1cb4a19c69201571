package main

import (
	"fmt"
	"log/slog"

	"sitewatch-hq/sitewatch/pkg/config"
	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/providers"
	"sitewatch-hq/sitewatch/pkg/providers/embedcache"
	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/report/storage"
	"sitewatch-hq/sitewatch/pkg/telemetry/logging"
	"sitewatch-hq/sitewatch/pkg/telemetry/metrics"
)

// loadConfig loads the configuration file named by --config, or the
// defaults when no file is given. --verbose forces debug logging.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		if err := config.Initialize(cfgFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.GetConfig()
	} else {
		cfg = config.DefaultConfig()
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the process default.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	return logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
}

// buildEmbedder constructs the embedding provider and, when caching is
// enabled, wraps it in the two-layer embedding cache. A non-nil collector
// is attached to both layers so provider calls and cache traffic show up
// in the metrics. The returned close function releases the provider and
// any cache store.
func buildEmbedder(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (engine.Embedder, providers.EmbeddingProvider, func(), error) {
	provider, err := providers.New(providers.ProviderConfig{
		Name:                cfg.Provider.Name,
		Type:                cfg.Provider.Type,
		BaseURL:             cfg.Provider.BaseURL,
		APIKey:              cfg.Provider.APIKey,
		Model:               cfg.Provider.Model,
		Timeout:             cfg.Provider.Timeout,
		MaxRetries:          cfg.Provider.MaxRetries,
		HealthCheckInterval: cfg.Provider.HealthCheckInterval,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if collector != nil {
		provider.SetMetricsRecorder(collector)
	}

	if !cfg.Cache.Enabled {
		return provider, provider, func() { provider.Close() }, nil
	}

	var store *embedcache.Store
	if cfg.Cache.Path != "" {
		store, err = embedcache.NewStore(cfg.Cache.Path)
		if err != nil {
			provider.Close()
			return nil, nil, nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
	}

	cached, err := embedcache.NewCachingEmbedder(
		provider,
		cfg.Provider.Model,
		embedcache.NewMemory(cfg.Cache.MaxEntries),
		store,
		logger,
	)
	if err != nil {
		if store != nil {
			store.Close()
		}
		provider.Close()
		return nil, nil, nil, err
	}
	if collector != nil {
		cached.SetMetricsRecorder(collector)
	}

	closeFn := func() {
		if store != nil {
			store.Close()
		}
		provider.Close()
	}
	return cached, provider, closeFn, nil
}

// openStorage opens the configured run record storage backend.
func openStorage(cfg *config.Config) (report.Storage, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		sqliteCfg := storage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Storage.Path
		return storage.NewSQLiteStorage(sqliteCfg)
	}
}

package metrics

import (
	"fmt"
	"sync"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled turns metric recording on. When false, all Record* calls
	// are no-ops.
	Enabled bool

	// Namespace is the metric name prefix (default "sitewatch").
	Namespace string

	// AnalysisDurationBuckets are histogram buckets for analysis run
	// durations in seconds.
	AnalysisDurationBuckets []float64

	// ComplianceRateBuckets are histogram buckets for compliance rates
	// in [0, 1].
	ComplianceRateBuckets []float64
}

// Collector is the orchestrator for all Prometheus metrics in sitewatch.
// It manages metric registration and provides a unified interface for
// recording metrics across components.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	analysisMetrics *AnalysisMetrics
	providerMetrics *ProviderMetrics
	cacheMetrics    *CacheMetrics

	// cardinalityLimiter bounds unique label sets. Task names come from
	// user-supplied SOP files, so without a cap they could grow without
	// bound.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "sitewatch"
	}
	if len(cfg.AnalysisDurationBuckets) == 0 {
		// Analysis time is dominated by embedding calls (100ms - 60s).
		cfg.AnalysisDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}
	}
	if len(cfg.ComplianceRateBuckets) == 0 {
		cfg.ComplianceRateBuckets = []float64{0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.analysisMetrics = NewAnalysisMetrics(cfg, registry)
	c.providerMetrics = NewProviderMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// RecordRun records metrics for a completed analysis run.
//
// Parameters:
//   - taskName: the procedure's task name
//   - status: run status ("success", "error")
//   - duration: total analysis duration
//   - summary: the run summary, or nil if the run failed before producing one
func (c *Collector) RecordRun(taskName, status string, duration time.Duration, summary *engine.Summary) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("run:%s:%s", taskName, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		taskName = "other"
	}

	c.analysisMetrics.RecordRun(taskName, status, duration, summary)
}

// RecordDeviation records a single deviation by kind and severity.
func (c *Collector) RecordDeviation(kind engine.DeviationKind, severity engine.Severity) {
	if !c.config.Enabled {
		return
	}

	c.analysisMetrics.RecordDeviation(string(kind), string(severity))
}

// RecordProviderRequest records metrics for an embedding API call.
//
// Parameters:
//   - provider: embedding provider name (e.g. "openai")
//   - model: embedding model name
//   - status: request status ("success", "error")
//   - duration: API call duration
//   - texts: number of texts embedded in the batch
func (c *Collector) RecordProviderRequest(provider, model, status string, duration time.Duration, texts int) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.RecordRequest(provider, model, status, duration, texts)
}

// RecordProviderError records an error from an embedding provider.
// errorType is the error category ("rate_limit", "timeout", "auth",
// "server_error", "parse").
func (c *Collector) RecordProviderError(provider, errorType string) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.RecordError(provider, errorType)
}

// UpdateProviderHealth updates the health gauge for a provider
// (1=healthy, 0=unhealthy).
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}

	c.providerMetrics.UpdateHealth(provider, healthy)
}

// RecordCacheHit records a hit on the named cache.
func (c *Collector) RecordCacheHit(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a miss on the named cache.
func (c *Collector) RecordCacheMiss(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordMiss(cacheName)
}

// RecordCacheEviction records an eviction from the named cache.
func (c *Collector) RecordCacheEviction(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordEviction(cacheName)
}

// UpdateCacheSize updates the entry-count gauge for the named cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.UpdateSize(cacheName, size)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the
// specified maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if the cardinality limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks metrics for embedding provider API calls.
//
// Metrics:
//   - sitewatch_provider_requests_total: request count by provider, model, status
//   - sitewatch_provider_request_duration_seconds: request latency histogram
//   - sitewatch_provider_texts_total: texts embedded per provider and model
//   - sitewatch_provider_errors_total: errors by provider and type
//   - sitewatch_provider_healthy: health gauge (1=healthy, 0=unhealthy)
type ProviderMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	textsTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	health          *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the
// provided registry.
func NewProviderMetrics(cfg *Config, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of embedding API requests",
			},
			[]string{"provider", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Duration of embedding API requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider", "model"},
		),

		textsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "texts_total",
				Help:      "Total number of texts embedded",
			},
			[]string{"provider", "model"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "errors_total",
				Help:      "Total number of provider errors by type",
			},
			[]string{"provider", "type"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "healthy",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.textsTotal,
		pm.errorsTotal,
		pm.health,
	)

	return pm
}

// RecordRequest records metrics for a completed embedding API call.
func (pm *ProviderMetrics) RecordRequest(provider, model, status string, duration time.Duration, texts int) {
	pm.requestsTotal.WithLabelValues(provider, model, status).Inc()
	pm.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if texts > 0 {
		pm.textsTotal.WithLabelValues(provider, model).Add(float64(texts))
	}
}

// RecordError records an error from a provider.
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errorsTotal.WithLabelValues(provider, errorType).Inc()
}

// UpdateHealth updates the health gauge for a provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

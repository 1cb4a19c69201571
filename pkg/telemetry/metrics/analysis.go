package metrics

import (
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics tracks metrics for analysis runs.
//
// Metrics:
//   - sitewatch_analysis_runs_total: run count by task and status
//   - sitewatch_analysis_duration_seconds: run duration histogram
//   - sitewatch_analysis_compliance_rate: compliance rate histogram
//   - sitewatch_analysis_steps_total: steps by outcome (matched, missing)
//   - sitewatch_analysis_deviations_total: deviations by kind and severity
type AnalysisMetrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	complianceRate  prometheus.Histogram
	stepsTotal      *prometheus.CounterVec
	deviationsTotal *prometheus.CounterVec
}

// NewAnalysisMetrics creates and registers analysis metrics with the
// provided registry.
func NewAnalysisMetrics(cfg *Config, registry *prometheus.Registry) *AnalysisMetrics {
	am := &AnalysisMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "analysis",
				Name:      "runs_total",
				Help:      "Total number of analysis runs",
			},
			[]string{"task", "status"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of analysis runs in seconds",
				Buckets:   cfg.AnalysisDurationBuckets,
			},
			[]string{"task"},
		),

		complianceRate: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "analysis",
				Name:      "compliance_rate",
				Help:      "Compliance rate of completed runs",
				Buckets:   cfg.ComplianceRateBuckets,
			},
		),

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "analysis",
				Name:      "steps_total",
				Help:      "Total procedure steps by outcome",
			},
			[]string{"outcome"},
		),

		deviationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "analysis",
				Name:      "deviations_total",
				Help:      "Total deviations detected by kind and severity",
			},
			[]string{"kind", "severity"},
		),
	}

	registry.MustRegister(
		am.runsTotal,
		am.runDuration,
		am.complianceRate,
		am.stepsTotal,
		am.deviationsTotal,
	)

	return am
}

// RecordRun records metrics for a completed run. summary may be nil when
// the run failed before producing one.
func (am *AnalysisMetrics) RecordRun(taskName, status string, duration time.Duration, summary *engine.Summary) {
	am.runsTotal.WithLabelValues(taskName, status).Inc()
	am.runDuration.WithLabelValues(taskName).Observe(duration.Seconds())

	if summary == nil {
		return
	}

	am.complianceRate.Observe(summary.ComplianceRate)
	am.stepsTotal.WithLabelValues("matched").Add(float64(summary.StepsMatched))
	am.stepsTotal.WithLabelValues("missing").Add(float64(len(summary.StepsMissing)))
}

// RecordDeviation records a single deviation.
func (am *AnalysisMetrics) RecordDeviation(kind, severity string) {
	am.deviationsTotal.WithLabelValues(kind, severity).Inc()
}

// Package metrics provides Prometheus metrics for sitewatch.
//
// The Collector registers and records metrics across three areas:
//   - analysis: run counts, durations, compliance rates, deviations
//   - provider: embedding API requests, latencies, errors, health
//   - cache: embedding cache hits, misses, sizes, evictions
//
// Metric names follow the sitewatch_<subsystem>_<name> convention. The
// Collector exposes its registry via Handler() for the /metrics endpoint
// used in watch mode.
package metrics

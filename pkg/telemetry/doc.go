// Package telemetry provides observability for sitewatch.
//
// Subpackages:
//   - logging: structured logging built on log/slog
//   - metrics: Prometheus metrics for analysis runs, embedding providers,
//     and caches
package telemetry

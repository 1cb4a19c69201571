// Package logging configures structured logging for sitewatch.
//
// It builds a log/slog logger from declarative configuration (level,
// format, source annotation) and can install it as the process-wide
// default so components that log via slog.Default() pick it up.
package logging

package config

import (
	"fmt"
	"net/url"
	"strings"

	"sitewatch-hq/sitewatch/pkg/engine"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "provider.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects all validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All errors are collected
// and returned together as a ValidationError; nil means valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateProvider(&cfg.Provider)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "engine.similarity_threshold",
			Message: fmt.Sprintf("must be in [0, 1], got %g", cfg.SimilarityThreshold),
		})
	}
	if cfg.ScoreEpsilon < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.score_epsilon",
			Message: fmt.Sprintf("must be non-negative, got %g", cfg.ScoreEpsilon),
		})
	}
	if cfg.OverrunFactor <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.overrun_factor",
			Message: fmt.Sprintf("must be positive, got %g", cfg.OverrunFactor),
		})
	}

	for kind, sev := range cfg.SeverityOverrides {
		if _, ok := engine.ParseSeverity(sev); !ok {
			errs = append(errs, FieldError{
				Field:   "engine.severity_overrides." + kind,
				Message: fmt.Sprintf("unknown severity %q", sev),
			})
		}
	}
	for i, rule := range cfg.EscalationRules {
		if rule.When == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("engine.escalation_rules[%d].when", i),
				Message: "condition is required",
			})
		}
		if _, ok := engine.ParseSeverity(rule.Severity); !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("engine.escalation_rules[%d].severity", i),
				Message: fmt.Sprintf("unknown severity %q", rule.Severity),
			})
		}
	}

	return errs
}

func validateProvider(cfg *ProviderConfig) []FieldError {
	var errs []FieldError

	switch cfg.Type {
	case "openai", "openai-compatible", "local":
	default:
		errs = append(errs, FieldError{
			Field:   "provider.type",
			Message: fmt.Sprintf("must be one of openai, openai-compatible, local; got %q", cfg.Type),
		})
	}

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: fmt.Sprintf("invalid URL %q", cfg.BaseURL),
		})
	}

	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "provider.model",
			Message: "model is required",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.timeout",
			Message: "timeout must be non-negative",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.max_retries",
			Message: "max retries must be non-negative",
		})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("must be sqlite or memory, got %q", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "storage.path",
			Message: "path is required for the sqlite backend",
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.retention_days",
			Message: "must be non-negative",
		})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.max_records",
			Message: "must be non-negative",
		})
	}
	if cfg.Enabled && cfg.PruneSchedule == "" {
		errs = append(errs, FieldError{
			Field:   "retention.prune_schedule",
			Message: "schedule is required when retention is enabled",
		})
	}
	if cfg.ArchiveBeforeDelete && cfg.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "retention.archive_path",
			Message: "archive path is required when archiving is enabled",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "listen address is required when metrics are enabled",
		})
	}

	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError

	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce_interval",
			Message: "must be non-negative",
		})
	}

	return errs
}

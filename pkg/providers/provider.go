package providers

import (
	"context"
	"fmt"
	"strings"
)

// EmbeddingProvider is the interface all embedding adapters implement.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return promptly when
// the context is cancelled.
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order. A non-nil
	// error means no usable vectors were produced for this batch; callers
	// decide whether that degrades or aborts their own operation.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// HealthCheck performs a lightweight on-demand check that the backend
	// is reachable and responding.
	HealthCheck(ctx context.Context) error

	// StartHealthChecker starts the background health checking loop for
	// long-lived processes. The loop runs until the context is cancelled
	// or the provider is closed. One-shot callers can skip it.
	StartHealthChecker(ctx context.Context)

	// SetMetricsRecorder attaches a telemetry recorder for request and
	// health metrics. Must be called before the provider serves requests.
	SetMetricsRecorder(recorder MetricsRecorder)

	// GetName returns the provider's configured name (e.g. "local-ollama").
	GetName() string

	// GetType returns the adapter type (e.g. "openai").
	GetType() string

	// GetConfig returns the provider's configuration.
	GetConfig() ProviderConfig

	// IsHealthy returns the current health status, as maintained by the
	// background health checker and per-request outcomes.
	IsHealthy() bool

	// GetHealth returns detailed health information including last check
	// time, consecutive failures, and request counters.
	GetHealth() ProviderHealth

	// Close releases resources (HTTP connections, background checkers).
	// After Close the provider must not be used.
	Close() error
}

// New constructs an embedding provider from configuration. The type selects
// the wire adapter; "openai" (and its aliases "openai-compatible" and
// "local") is the OpenAI-compatible /v1/embeddings protocol.
func New(config ProviderConfig) (EmbeddingProvider, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(config.Type) {
	case "openai", "openai-compatible", "local":
		return NewOpenAIProvider(config)
	default:
		return nil, &ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unknown provider type %q", config.Type),
		}
	}
}

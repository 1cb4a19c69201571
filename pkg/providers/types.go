package providers

import "time"

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// MetricsRecorder receives provider telemetry: request outcomes, typed
// errors, and health transitions. The telemetry collector satisfies it;
// a nil recorder disables recording.
type MetricsRecorder interface {
	RecordProviderRequest(provider, model, status string, duration time.Duration, texts int)
	RecordProviderError(provider, errorType string)
	UpdateProviderHealth(provider string, healthy bool)
}

// ProviderConfig contains configuration for a single embedding provider.
type ProviderConfig struct {
	// Name is the provider identifier used in logs and errors
	Name string

	// Type is the adapter type ("openai", "openai-compatible", "local")
	Type string

	// BaseURL is the API endpoint base URL, e.g. "https://api.openai.com/v1"
	BaseURL string

	// APIKey is the authentication key; empty for unauthenticated local servers
	APIKey string

	// Model is the embedding model identifier, e.g. "text-embedding-3-small"
	Model string

	// Timeout is the per-request timeout duration
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient errors
	MaxRetries int

	// HealthCheckInterval is how often the background checker runs
	HealthCheckInterval time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// ApplyDefaults fills zero-valued optional fields with sensible defaults.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

// Validate checks the required fields.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return &ConfigError{Provider: c.Name, Field: "name", Message: "name is required"}
	}
	if c.BaseURL == "" {
		return &ConfigError{Provider: c.Name, Field: "base_url", Message: "base_url is required"}
	}
	if c.Model == "" {
		return &ConfigError{Provider: c.Name, Field: "model", Message: "model is required"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Provider: c.Name, Field: "max_retries", Message: "max_retries cannot be negative"}
	}
	return nil
}

// embeddingRequest is the OpenAI-compatible /v1/embeddings request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the OpenAI-compatible /v1/embeddings response body.
// Vectors arrive with an explicit index and are not guaranteed to be in
// input order.
type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Model string          `json:"model"`
	Usage embeddingUsage  `json:"usage"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

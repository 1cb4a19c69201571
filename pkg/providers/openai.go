package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// OpenAIProvider speaks the OpenAI-compatible /v1/embeddings protocol. It
// works against api.openai.com as well as local servers exposing the same
// API (Ollama, LocalAI, text-embeddings-inference).
type OpenAIProvider struct {
	*HTTPProvider
	logger *slog.Logger
}

// NewOpenAIProvider creates an OpenAI-compatible embedding provider.
// The config must already have defaults applied and be validated; use the
// New factory unless constructing the adapter directly in tests.
func NewOpenAIProvider(config ProviderConfig) (*OpenAIProvider, error) {
	if config.BaseURL == "" {
		return nil, &ConfigError{Provider: config.Name, Field: "base_url", Message: "base_url is required"}
	}
	return &OpenAIProvider{
		HTTPProvider: NewHTTPProvider(config),
		logger:       slog.Default().With("component", "providers.openai", "provider", config.Name),
	}, nil
}

// Embed requests embeddings for the given texts in a single batch. Vectors
// are returned in input order regardless of the order the backend sends
// them in.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &ProviderError{
				Provider: p.GetName(),
				Message:  fmt.Sprintf("input %d is empty", i),
			}
		}
	}

	config := p.GetConfig()
	req := embeddingRequest{
		Model: config.Model,
		Input: texts,
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if config.APIKey != "" {
		headers["Authorization"] = "Bearer " + config.APIKey
	}

	url := strings.TrimSuffix(config.BaseURL, "/") + "/embeddings"

	started := time.Now()
	var resp embeddingResponse
	if err := p.DoJSONRequest(ctx, "POST", url, &req, &resp, headers); err != nil {
		if p.metrics != nil {
			p.metrics.RecordProviderRequest(config.Name, config.Model, "error", time.Since(started), 0)
			p.metrics.RecordProviderError(config.Name, metricErrorType(err))
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordProviderRequest(config.Name, config.Model, "success", time.Since(started), len(texts))
	}

	if len(resp.Data) != len(texts) {
		return nil, &ParseError{
			Provider: p.GetName(),
			Cause:    fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}

	vectors := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, &ParseError{
				Provider: p.GetName(),
				Cause:    fmt.Errorf("embedding index %d out of range", item.Index),
			}
		}
		if len(item.Embedding) == 0 {
			return nil, &ParseError{
				Provider: p.GetName(),
				Cause:    fmt.Errorf("empty embedding at index %d", item.Index),
			}
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, &ParseError{
				Provider: p.GetName(),
				Cause:    fmt.Errorf("missing embedding for input %d", i),
			}
		}
	}

	p.logger.Debug("embedded batch",
		"texts", len(texts),
		"dimensions", len(vectors[0]),
		"prompt_tokens", resp.Usage.PromptTokens,
	)
	return vectors, nil
}

// Package providers contains the embedding provider adapters used to turn
// step actions and observed action descriptions into vectors.
//
// The core abstraction is the EmbeddingProvider interface. The only wire
// adapter today is the OpenAI-compatible one (OpenAIProvider), which also
// covers local servers that speak the same /v1/embeddings API, such as
// Ollama, LocalAI and text-embeddings-inference.
//
// All adapters share the HTTPProvider base, which provides connection
// pooling, retry with exponential backoff, timeout handling and health
// monitoring. Typed errors (AuthError, RateLimitError, TimeoutError,
// ParseError, ProviderError) let callers distinguish failure modes with
// errors.As.
//
// Providers are constructed through New:
//
//	provider, err := providers.New(providers.ProviderConfig{
//	    Name:    "local-ollama",
//	    Type:    "openai",
//	    BaseURL: "http://localhost:11434/v1",
//	    Model:   "nomic-embed-text",
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embed(ctx, []string{"Worker measuring the wall"})
package providers

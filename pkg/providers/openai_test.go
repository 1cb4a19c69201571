package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(baseURL string) ProviderConfig {
	return ProviderConfig{
		Name:       "test",
		Type:       "openai",
		BaseURL:    baseURL,
		APIKey:     "sk-test",
		Model:      "text-embedding-3-small",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}
}

func newTestProvider(t *testing.T, baseURL string) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(testConfig(baseURL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s, want /v1/embeddings", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Input) != 2 {
			t.Fatalf("inputs = %d, want 2", len(req.Input))
		}

		// Deliver vectors out of order; the client must reorder by index.
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{
				{Index: 1, Embedding: []float64{0, 1}},
				{Index: 0, Embedding: []float64{1, 0}},
			},
			Model: req.Model,
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	vectors, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Errorf("vectors not restored to input order: %v", vectors)
	}
}

func TestOpenAIProvider_EmbedEmptyBatch(t *testing.T) {
	p := newTestProvider(t, "http://localhost:1/v1")

	vectors, err := p.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("Embed(nil) = %v, %v; want nil, nil", vectors, err)
	}
}

func TestOpenAIProvider_EmbedRejectsEmptyText(t *testing.T) {
	p := newTestProvider(t, "http://localhost:1/v1")

	_, err := p.Embed(context.Background(), []string{"ok", "   "})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
}

func TestOpenAIProvider_EmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float64{1}}},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	_, err := p.Embed(context.Background(), []string{"a", "b"})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestOpenAIProvider_EmbedMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	_, err := p.Embed(context.Background(), []string{"a"})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestDoRequest_RetriesTransientErrors(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float64{1}}},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	if _, err := p.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed() error = %v, want success after retry", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestDoRequest_AuthErrorNotRetried(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	_, err := p.Embed(context.Background(), []string{"a"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (no retry on auth failure)", requests)
	}
}

func TestDoRequest_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	_, err := p.Embed(context.Background(), []string{"a"})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rateErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %s, want 7s", rateErr.RetryAfter)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if !p.IsHealthy() {
		t.Error("IsHealthy() = false after successful check")
	}
}

func TestUnhealthyAfterConsecutiveFailures(t *testing.T) {
	p := newTestProvider(t, "http://localhost:1/v1")

	for i := 0; i < 3; i++ {
		p.updateHealth(false, errors.New("connection refused"))
	}
	if p.IsHealthy() {
		t.Error("IsHealthy() = true after 3 consecutive failures")
	}

	p.updateHealth(true, nil)
	if !p.IsHealthy() {
		t.Error("IsHealthy() = false after recovery")
	}
	if p.GetHealth().ConsecutiveFailures != 0 {
		t.Error("ConsecutiveFailures not reset on recovery")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{header: "", want: 0},
		{header: "30", want: 30 * time.Second},
		{header: "garbage", want: 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProviderConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *ProviderConfig) {}},
		{name: "missing name", mutate: func(c *ProviderConfig) { c.Name = "" }, wantErr: true},
		{name: "missing base url", mutate: func(c *ProviderConfig) { c.BaseURL = "" }, wantErr: true},
		{name: "missing model", mutate: func(c *ProviderConfig) { c.Model = "" }, wantErr: true},
		{name: "negative retries", mutate: func(c *ProviderConfig) { c.MaxRetries = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost/v1")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderConfig_ApplyDefaults(t *testing.T) {
	cfg := ProviderConfig{Name: "x", BaseURL: "http://localhost/v1", Model: "m"}
	cfg.ApplyDefaults()

	if cfg.Type != "openai" {
		t.Errorf("Type = %q, want openai", cfg.Type)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(ProviderConfig{
		Name:    "x",
		Type:    "grpc",
		BaseURL: "http://localhost/v1",
		Model:   "m",
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

// fakeRecorder captures telemetry calls for assertions.
type fakeRecorder struct {
	mu       sync.Mutex
	requests []string // "status/texts"
	errors   []string
	health   []bool
}

func (r *fakeRecorder) RecordProviderRequest(provider, model, status string, duration time.Duration, texts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, fmt.Sprintf("%s/%d", status, texts))
}

func (r *fakeRecorder) RecordProviderError(provider, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, errorType)
}

func (r *fakeRecorder) UpdateProviderHealth(provider string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health = append(r.health, healthy)
}

func TestEmbed_RecordsProviderMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{
				{Index: 0, Embedding: []float64{1}},
				{Index: 1, Embedding: []float64{2}},
			},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")
	recorder := &fakeRecorder{}
	p.SetMetricsRecorder(recorder)

	if _, err := p.Embed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.requests) != 1 || recorder.requests[0] != "success/2" {
		t.Errorf("requests = %v, want [success/2]", recorder.requests)
	}
	if len(recorder.errors) != 0 {
		t.Errorf("errors = %v, want none", recorder.errors)
	}
	if len(recorder.health) == 0 || !recorder.health[len(recorder.health)-1] {
		t.Errorf("health = %v, want trailing true", recorder.health)
	}
}

func TestEmbed_RecordsProviderErrorMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")
	recorder := &fakeRecorder{}
	p.SetMetricsRecorder(recorder)

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("Embed() error = nil, want auth failure")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.requests) != 1 || recorder.requests[0] != "error/0" {
		t.Errorf("requests = %v, want [error/0]", recorder.requests)
	}
	if len(recorder.errors) != 1 || recorder.errors[0] != "auth" {
		t.Errorf("errors = %v, want [auth]", recorder.errors)
	}
}

func TestMetricErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &AuthError{Provider: "p"}, want: "auth"},
		{err: &RateLimitError{Provider: "p"}, want: "rate_limit"},
		{err: &TimeoutError{Provider: "p"}, want: "timeout"},
		{err: &ParseError{Provider: "p"}, want: "parse"},
		{err: errors.New("boom"), want: "provider"},
	}
	for _, tt := range tests {
		if got := metricErrorType(tt.err); got != tt.want {
			t.Errorf("metricErrorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDoRequest_RateLimitRetriedWithinWaitCap(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float64{1}}},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL+"/v1")

	if _, err := p.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed() error = %v, want success after waiting out the rate limit", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestStartHealthChecker(t *testing.T) {
	var checks int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&checks, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL + "/v1")
	cfg.HealthCheckInterval = 10 * time.Millisecond
	p, err := NewOpenAIProvider(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	recorder := &fakeRecorder{}
	p.SetMetricsRecorder(recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.StartHealthChecker(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&checks) == 0 {
		select {
		case <-deadline:
			t.Fatal("health checker never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if !p.IsHealthy() {
		t.Error("IsHealthy() = false after passing checks")
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.health) == 0 || !recorder.health[len(recorder.health)-1] {
		t.Errorf("health = %v, want trailing true", recorder.health)
	}
}

package embedcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Backend is the minimal embedding surface the cache wraps. Both
// providers.EmbeddingProvider and the engine's Embedder satisfy it.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// MetricsRecorder receives cache telemetry, keyed by layer name ("memory"
// or "persistent"). The telemetry collector satisfies it; a nil recorder
// disables recording.
type MetricsRecorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordCacheEviction(cache string)
	UpdateCacheSize(cache string, size int)
}

// CachingEmbedder serves embeddings from the cache layers and falls through
// to the backend for misses. It satisfies Backend itself, so it can be
// handed directly to the matching engine.
type CachingEmbedder struct {
	backend Backend
	model   string
	memory  *Memory
	store   *Store
	logger  *slog.Logger

	metrics MetricsRecorder

	// evMu guards seenEvictions, the eviction count already reported
	// to the metrics recorder.
	evMu          sync.Mutex
	seenEvictions int64
}

// NewCachingEmbedder wraps backend with the given layers. memory must be
// non-nil; store may be nil to run without persistence. model keys the
// cache entries and must match the backend's configured model.
func NewCachingEmbedder(backend Backend, model string, memory *Memory, store *Store, logger *slog.Logger) (*CachingEmbedder, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if memory == nil {
		return nil, fmt.Errorf("memory cache cannot be nil")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingEmbedder{
		backend: backend,
		model:   model,
		memory:  memory,
		store:   store,
		logger:  logger.With("component", "embedcache"),
	}, nil
}

// Embed returns one vector per text, serving as many as possible from the
// cache layers and batching the rest into a single backend call. A backend
// error fails the whole call; cached vectors are not returned partially.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := Key(c.model, text)

		if v, ok := c.memory.Get(key); ok {
			c.recordHit("memory")
			vectors[i] = v
			continue
		}
		c.recordMiss("memory")

		if c.store != nil {
			v, ok, err := c.store.Get(ctx, key)
			if err != nil {
				// A broken cache must not break embedding; treat as a miss.
				c.logger.Warn("persistent cache read failed", "error", err)
			} else if ok {
				c.recordHit("persistent")
				c.memory.Set(key, v)
				vectors[i] = v
				continue
			}
			c.recordMiss("persistent")
		}

		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		c.reportMemoryState()
		return vectors, nil
	}

	fresh, err := c.backend.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("backend returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for j, v := range fresh {
		i := missIdx[j]
		vectors[i] = v

		key := Key(c.model, texts[i])
		c.memory.Set(key, v)
		if c.store != nil {
			if err := c.store.Put(ctx, key, c.model, v); err != nil {
				c.logger.Warn("persistent cache write failed", "error", err)
			}
		}
	}

	c.reportMemoryState()
	c.logger.Debug("embedded with cache",
		"texts", len(texts),
		"misses", len(missTexts),
	)
	return vectors, nil
}

// Stats returns the in-memory layer's counters.
func (c *CachingEmbedder) Stats() Stats {
	return c.memory.Stats()
}

// SetMetricsRecorder attaches a telemetry recorder. Must be called before
// the embedder serves requests; not safe to swap concurrently with use.
func (c *CachingEmbedder) SetMetricsRecorder(recorder MetricsRecorder) {
	c.metrics = recorder
}

func (c *CachingEmbedder) recordHit(cache string) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(cache)
	}
}

func (c *CachingEmbedder) recordMiss(cache string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(cache)
	}
}

// reportMemoryState pushes the in-memory layer's size and any evictions
// that happened since the last report to the metrics recorder.
func (c *CachingEmbedder) reportMemoryState() {
	if c.metrics == nil {
		return
	}

	stats := c.memory.Stats()
	c.metrics.UpdateCacheSize("memory", stats.Entries)

	c.evMu.Lock()
	defer c.evMu.Unlock()
	for ; c.seenEvictions < stats.Evictions; c.seenEvictions++ {
		c.metrics.RecordCacheEviction("memory")
	}
}

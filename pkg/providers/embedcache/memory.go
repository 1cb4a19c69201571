package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Key derives the cache key for a model/text pair.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Stats holds cache counters. Counters are cumulative since construction.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

type memoryEntry struct {
	vector         []float64
	lastAccessedAt time.Time
}

// Memory is a thread-safe in-memory vector cache with LRU eviction.
type Memory struct {
	entries    map[string]*memoryEntry
	maxEntries int
	mu         sync.RWMutex
	hits       int64
	misses     int64
	evictions  int64
}

// NewMemory creates an in-memory cache holding at most maxEntries vectors.
// If maxEntries is 0 the cache is unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached vector for key, or nil and false on a miss.
func (m *Memory) Get(key string) ([]float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	entry.lastAccessedAt = time.Now()
	m.hits++
	return entry.vector, true
}

// Set stores a vector under key, evicting the least recently used entry
// when the cache is full.
func (m *Memory) Set(key string, vector []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		if _, exists := m.entries[key]; !exists {
			m.evictLRU()
		}
	}

	m.entries[key] = &memoryEntry{
		vector:         vector,
		lastAccessedAt: time.Now(),
	}
}

// evictLRU removes the least recently accessed entry. Caller holds mu.
func (m *Memory) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.lastAccessedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.evictions++
	}
}

// Stats returns a snapshot of the cache counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
		Entries:   len(m.entries),
	}
}

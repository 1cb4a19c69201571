// Package embedcache caches embedding vectors so that repeated texts, most
// importantly the fixed step actions of a procedure, are embedded once.
//
// Two layers are provided: an in-memory LRU cache (Memory) and an optional
// persistent SQLite layer (Store) that survives restarts. CachingEmbedder
// composes either or both in front of any embedding backend, looking up
// each text in memory first, then in the store, and only sending the
// remaining misses to the backend in one batch.
//
// Cache keys are derived from the model name and the exact text, so one
// database file can safely serve different embedding models.
package embedcache

// Package storage provides run record storage backends.
//
// Two backends are provided: SQLiteStorage for durable single-node
// persistence, and MemoryStorage for tests. Both implement report.Storage.
package storage

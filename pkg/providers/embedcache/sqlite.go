package embedcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is the persistent cache layer backed by SQLite. Vectors are stored
// JSON-encoded, keyed by the model/text digest, so one file serves multiple
// models without collisions.
//
// The database opens in WAL mode with a single writer connection, which is
// all SQLite supports anyway.
type Store struct {
	db *sql.DB

	getStmt *sql.Stmt
	putStmt *sql.Stmt
}

// StoreConfig configures the persistent cache.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewStore opens (creating if needed) the persistent cache at path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithConfig(StoreConfig{Path: path})
}

// NewStoreWithConfig opens the persistent cache with custom configuration.
func NewStoreWithConfig(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare cache statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		key        TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error
	s.getStmt, err = s.db.Prepare(`SELECT vector FROM embeddings WHERE key = ?`)
	if err != nil {
		return err
	}
	s.putStmt, err = s.db.Prepare(`
		INSERT INTO embeddings (key, model, dimensions, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`)
	return err
}

// Get returns the stored vector for key, or nil and false when absent.
func (s *Store) Get(ctx context.Context, key string) ([]float64, bool, error) {
	var encoded string
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached embedding: %w", err)
	}

	var vector []float64
	if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return vector, true, nil
}

// Put stores a vector under key. Existing entries are left untouched:
// embeddings for the same model and text are deterministic enough that the
// first write wins.
func (s *Store) Put(ctx context.Context, key, model string, vector []float64) error {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	_, err = s.putStmt.ExecContext(ctx, key, model, len(vector), string(encoded), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	if s.putStmt != nil {
		s.putStmt.Close()
	}
	return s.db.Close()
}

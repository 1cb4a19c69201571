package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the run record schema.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    task_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,

    sop_path TEXT,
    actions_path TEXT,
    provider TEXT,
    model TEXT,

    action_count INTEGER,
    duration_ms INTEGER,

    total_steps INTEGER NOT NULL,
    steps_matched INTEGER NOT NULL,
    steps_missing TEXT,
    compliance_rate REAL NOT NULL,
    mean_score REAL,
    grade TEXT,

    deviations TEXT,
    deviation_counts TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_task_name ON runs(task_name);
CREATE INDEX IF NOT EXISTS idx_runs_compliance_rate ON runs(compliance_rate);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version, ignoring re-inserts.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1;`

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sitewatch-hq/sitewatch/pkg/report"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/sitewatch.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements report.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "report.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, report.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("run record storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize sets up the schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return report.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return report.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return report.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return report.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return report.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return report.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists a run record.
func (s *SQLiteStorage) Store(ctx context.Context, record *report.RunRecord) error {
	stepsMissing, _ := json.Marshal(record.StepsMissing)
	deviations, _ := json.Marshal(record.Deviations)
	counts, _ := json.Marshal(record.DeviationCounts)

	query := `
		INSERT INTO runs (
			id, task_name, created_at,
			sop_path, actions_path, provider, model,
			action_count, duration_ms,
			total_steps, steps_matched, steps_missing, compliance_rate, mean_score, grade,
			deviations, deviation_counts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.TaskName, record.CreatedAt,
		record.SOPPath, record.ActionsPath, record.Provider, record.Model,
		record.ActionCount, record.Duration.Milliseconds(),
		record.TotalSteps, record.StepsMatched, string(stepsMissing),
		record.ComplianceRate, record.MeanScore, record.Grade,
		string(deviations), string(counts),
	)
	if err != nil {
		return report.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get retrieves a single record by id.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*report.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM runs WHERE id = ?", id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &report.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, report.NewStorageError("sqlite", "get", err)
	}
	return record, nil
}

// Query retrieves records matching the filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *report.Query) ([]*report.RunRecord, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := selectColumns + " FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += orderAndLimit(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, report.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*report.RunRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, report.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, report.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *report.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, report.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the filters and returns how many were
// removed.
func (s *SQLiteStorage) Delete(ctx context.Context, query *report.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM runs"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, report.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, report.NewStorageError("sqlite", "delete", err)
	}

	if deleted > 0 {
		s.logger.Info("deleted run records", "count", deleted)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT
	id, task_name, created_at,
	sop_path, actions_path, provider, model,
	action_count, duration_ms,
	total_steps, steps_matched, steps_missing, compliance_rate, mean_score, grade,
	deviations, deviation_counts`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*report.RunRecord, error) {
	var r report.RunRecord
	var stepsMissing, deviations, counts string
	var durationMs int64

	err := row.Scan(
		&r.ID, &r.TaskName, &r.CreatedAt,
		&r.SOPPath, &r.ActionsPath, &r.Provider, &r.Model,
		&r.ActionCount, &durationMs,
		&r.TotalSteps, &r.StepsMatched, &stepsMissing, &r.ComplianceRate, &r.MeanScore, &r.Grade,
		&deviations, &counts,
	)
	if err != nil {
		return nil, err
	}

	r.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(stepsMissing), &r.StepsMissing); err != nil {
		return nil, fmt.Errorf("failed to decode steps_missing: %w", err)
	}
	if err := json.Unmarshal([]byte(deviations), &r.Deviations); err != nil {
		return nil, fmt.Errorf("failed to decode deviations: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &r.DeviationCounts); err != nil {
		return nil, fmt.Errorf("failed to decode deviation_counts: %w", err)
	}
	return &r, nil
}

// buildWhereClause builds the WHERE clause and args for a query.
func buildWhereClause(query *report.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var clauses []string
	var args []any

	if query.StartTime != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, *query.EndTime)
	}
	if query.TaskName != "" {
		clauses = append(clauses, "task_name = ?")
		args = append(args, query.TaskName)
	}
	if query.MinComplianceRate != nil {
		clauses = append(clauses, "compliance_rate >= ?")
		args = append(args, *query.MinComplianceRate)
	}
	if query.MaxComplianceRate != nil {
		clauses = append(clauses, "compliance_rate <= ?")
		args = append(args, *query.MaxComplianceRate)
	}

	return strings.Join(clauses, " AND "), args
}

// orderAndLimit renders the ORDER BY / LIMIT / OFFSET suffix. Sort columns
// are whitelisted; everything else falls back to created_at.
func orderAndLimit(query *report.Query) string {
	sortBy := "created_at"
	sortOrder := "DESC"
	if query != nil {
		switch query.SortBy {
		case "compliance_rate":
			sortBy = "compliance_rate"
		case "task_name":
			sortBy = "task_name"
		}
		if strings.EqualFold(query.SortOrder, "asc") {
			sortOrder = "ASC"
		}
	}

	out := fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := 100
	if query != nil && query.Limit > 0 {
		limit = query.Limit
	}
	out += fmt.Sprintf(" LIMIT %d", limit)
	if query != nil && query.Offset > 0 {
		out += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return out
}

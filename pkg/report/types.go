package report

import (
	"context"
	"io"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"
)

// RunRecord is the persisted result of one analysis run.
type RunRecord struct {
	// ID is a UUID v4 assigned at record creation.
	ID string `json:"id"`

	// TaskName is the procedure's task name.
	TaskName string `json:"task_name"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// SOPPath and ActionsPath are the input files, for traceability.
	SOPPath     string `json:"sop_path,omitempty"`
	ActionsPath string `json:"actions_path,omitempty"`

	// Provider and Model identify the embedding backend used.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// ActionCount is the number of observed actions analyzed.
	ActionCount int `json:"action_count"`

	// Duration is the wall-clock time of the analysis.
	Duration time.Duration `json:"duration"`

	// Summary fields, denormalized for querying.
	TotalSteps     int     `json:"total_steps"`
	StepsMatched   int     `json:"steps_matched"`
	StepsMissing   []int   `json:"steps_missing"`
	ComplianceRate float64 `json:"compliance_rate"`
	MeanScore      float64 `json:"mean_score"`
	Grade          string  `json:"grade"`

	// Deviations is the full ordered deviation list.
	Deviations []engine.Deviation `json:"deviations"`

	// DeviationCounts breaks the deviations down by severity.
	DeviationCounts map[engine.Severity]int `json:"deviation_count_by_severity"`
}

// Query defines filter parameters for querying run records.
type Query struct {
	// Time range (inclusive).
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// TaskName filters by exact task name.
	TaskName string `json:"task_name,omitempty"`

	// Compliance rate thresholds.
	MinComplianceRate *float64 `json:"min_compliance_rate,omitempty"`
	MaxComplianceRate *float64 `json:"max_compliance_rate,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting: "created_at" (default) or "compliance_rate", "asc"/"desc".
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for run record backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a run record.
	Store(ctx context.Context, record *RunRecord) error

	// Get retrieves a single record by id. Returns a NotFoundError if no
	// such record exists.
	Get(ctx context.Context, id string) (*RunRecord, error)

	// Query retrieves records matching the filters. Returns an empty
	// slice when nothing matches.
	Query(ctx context.Context, query *Query) ([]*RunRecord, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the filters and returns how many
	// were removed. Used for retention enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes run records to a writer in some format.
type Exporter interface {
	Export(ctx context.Context, records []*RunRecord, w io.Writer) error
}

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
)

// CSVExporter exports run records to CSV format, one row per run. The
// deviation list flattens to per-severity counts.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes run records to the writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*report.RunRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return report.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return report.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return report.NewExportError("csv", len(records), err)
	}
	return nil
}

func headerRow() []string {
	return []string{
		"id", "task_name", "created_at",
		"provider", "model",
		"action_count", "duration_ms",
		"total_steps", "steps_matched", "steps_missing",
		"compliance_rate", "mean_score", "grade",
		"deviations_total", "critical", "high", "medium", "low",
	}
}

func recordToRow(r *report.RunRecord) []string {
	missing := make([]string, len(r.StepsMissing))
	for i, id := range r.StepsMissing {
		missing[i] = strconv.Itoa(id)
	}

	return []string{
		r.ID,
		r.TaskName,
		r.CreatedAt.Format(time.RFC3339),
		r.Provider,
		r.Model,
		strconv.Itoa(r.ActionCount),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		strconv.Itoa(r.TotalSteps),
		strconv.Itoa(r.StepsMatched),
		strings.Join(missing, ";"),
		fmt.Sprintf("%.4f", r.ComplianceRate),
		fmt.Sprintf("%.4f", r.MeanScore),
		r.Grade,
		strconv.Itoa(len(r.Deviations)),
		strconv.Itoa(r.DeviationCounts[engine.SeverityCritical]),
		strconv.Itoa(r.DeviationCounts[engine.SeverityHigh]),
		strconv.Itoa(r.DeviationCounts[engine.SeverityMedium]),
		strconv.Itoa(r.DeviationCounts[engine.SeverityLow]),
	}
}

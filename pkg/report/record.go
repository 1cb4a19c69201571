package report

import (
	"time"

	"github.com/google/uuid"

	"sitewatch-hq/sitewatch/pkg/engine"
)

// RecordOptions carries run metadata not present in the engine result.
type RecordOptions struct {
	SOPPath     string
	ActionsPath string
	Provider    string
	Model       string
	ActionCount int
	Duration    time.Duration
}

// NewRunRecord builds a persisted record from an engine result, assigning a
// fresh UUID and computing the compliance grade.
func NewRunRecord(result *engine.Result, opts RecordOptions) *RunRecord {
	counts := make(map[engine.Severity]int, len(result.Summary.DeviationsBySeverity))
	for sev, n := range result.Summary.DeviationsBySeverity {
		counts[sev] = n
	}

	return &RunRecord{
		ID:              uuid.New().String(),
		TaskName:        result.Summary.TaskName,
		CreatedAt:       time.Now().UTC(),
		SOPPath:         opts.SOPPath,
		ActionsPath:     opts.ActionsPath,
		Provider:        opts.Provider,
		Model:           opts.Model,
		ActionCount:     opts.ActionCount,
		Duration:        opts.Duration,
		TotalSteps:      result.Summary.TotalSteps,
		StepsMatched:    result.Summary.StepsMatched,
		StepsMissing:    result.Summary.StepsMissing,
		ComplianceRate:  result.Summary.ComplianceRate,
		MeanScore:       result.Summary.MeanScore,
		Grade:           Grade(result.Summary.ComplianceRate),
		Deviations:      result.Deviations,
		DeviationCounts: counts,
	}
}

// Grade maps a compliance rate in [0,1] to a letter grade.
func Grade(rate float64) string {
	percent := rate * 100
	switch {
	case percent >= 90:
		return "A - Excellent"
	case percent >= 80:
		return "B - Good"
	case percent >= 70:
		return "C - Acceptable"
	case percent >= 60:
		return "D - Needs Improvement"
	default:
		return "F - Critical Issues"
	}
}

// HasDeviations reports whether the run produced any deviations.
func (r *RunRecord) HasDeviations() bool {
	return len(r.Deviations) > 0
}

// CountAtOrAbove returns the number of deviations at or above the given
// severity.
func (r *RunRecord) CountAtOrAbove(min engine.Severity) int {
	n := 0
	for _, d := range r.Deviations {
		if d.Severity.Rank() >= min.Rank() {
			n++
		}
	}
	return n
}

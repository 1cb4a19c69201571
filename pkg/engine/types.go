package engine

import (
	"context"

	"sitewatch-hq/sitewatch/pkg/sop"
)

// Embedder converts text into fixed-length numeric vectors. Implementations
// must be pure with respect to their input text: the same text always yields
// the same vector for a given model version. That property is what makes
// embedding results safe to cache and share across concurrent runs.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ObservedAction is a single timestamped observation of worker activity,
// produced by the external action recognizer. The engine never mutates it.
//
// A nil Tools or SafetyEquipment slice means the recognizer did not report
// that signal; an empty non-nil slice means it reported seeing none.
// Absence of evidence is never treated as a violation.
type ObservedAction struct {
	// Timestamp is the observation time in seconds from the start of the
	// footage. Non-negative.
	Timestamp float64 `json:"timestamp"`

	// Description is the natural-language description of the action.
	Description string `json:"description"`

	// Tools lists tools detected in use, if reported.
	Tools []string `json:"tools,omitempty"`

	// SafetyEquipment lists safety gear detected on the worker, if reported.
	SafetyEquipment []string `json:"safety_equipment,omitempty"`

	// Zone is the work area the recognizer placed the worker in, if reported.
	Zone string `json:"zone,omitempty"`
}

// MatchResult is the outcome of matching one observed action against the
// procedure. It is consumed immediately by the tracker and rule checker.
type MatchResult struct {
	// Action is the observed action that was matched.
	Action *ObservedAction

	// Step is the best-matching procedure step, or nil if the best score
	// fell below the similarity threshold (the action is unrecognized).
	Step *sop.Step

	// RunnerUp is the second-best step by raw score, or nil.
	RunnerUp *sop.Step

	// Score is the best similarity score in [0,1]. It is nil only when
	// analysis was unavailable (embedding provider failure or a malformed
	// action); it is reported even for unrecognized actions.
	Score *float64
}

// DeviationKind identifies the kind of compliance violation.
type DeviationKind string

const (
	// KindMissingStep: a procedure step was never performed.
	KindMissingStep DeviationKind = "missing_step"

	// KindOutOfOrder: a step was performed after a later step.
	KindOutOfOrder DeviationKind = "out_of_order"

	// KindWrongTool: none of the step's required tools were in use.
	KindWrongTool DeviationKind = "wrong_tool"

	// KindMissingSafetyEquipment: required safety gear was not worn.
	KindMissingSafetyEquipment DeviationKind = "missing_safety_equipment"

	// KindWrongZone: the work happened outside the step's zone.
	KindWrongZone DeviationKind = "wrong_zone"

	// KindTimingOverrun: a step took longer than its allowed duration.
	KindTimingOverrun DeviationKind = "timing_overrun"

	// KindUnrecognizedAction: the action matched no procedure step, or
	// analysis was unavailable for it.
	KindUnrecognizedAction DeviationKind = "unrecognized_action"
)

// Severity ranks how alarming a deviation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric rank for ordering severities; higher is worse.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ParseSeverity parses a severity string as used in configuration.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), true
	}
	return "", false
}

// Deviation is a single recorded compliance violation. Deviations are
// immutable once produced and carry everything the alert renderer needs.
type Deviation struct {
	// Kind is the violation kind.
	Kind DeviationKind `json:"kind"`

	// Severity is assigned by the classifier.
	Severity Severity `json:"severity"`

	// Step is the procedure step the deviation refers to, if any.
	Step *sop.Step `json:"step,omitempty"`

	// Action is the observed action that triggered the deviation, if any.
	// End-of-run deviations (missing step, timing overrun) have none.
	Action *ObservedAction `json:"action,omitempty"`

	// Score is the similarity score of the triggering match, if known.
	Score *float64 `json:"score,omitempty"`

	// Message is a human-readable description of the violation.
	Message string `json:"message"`
}

// Summary is the run-level roll-up computed once at end of run.
type Summary struct {
	// TaskName is the procedure's task name.
	TaskName string `json:"task_name"`

	// TotalSteps is the number of steps in the procedure.
	TotalSteps int `json:"total_steps"`

	// StepsMatched is the number of distinct steps observed at least once.
	StepsMatched int `json:"steps_matched"`

	// StepsMissing lists the IDs of steps never observed, in canonical order.
	StepsMissing []int `json:"steps_missing"`

	// ComplianceRate is the fraction of steps completed without any
	// associated deviation, in [0,1].
	ComplianceRate float64 `json:"compliance_rate"`

	// MeanScore is the mean similarity score across actions for which a
	// score could be computed, in [0,1]. Zero when no action was scored.
	MeanScore float64 `json:"mean_score"`

	// DeviationsBySeverity counts deviations per severity. All four
	// severities are always present as keys.
	DeviationsBySeverity map[Severity]int `json:"deviation_count_by_severity"`
}

// Result is the full output of one run, handed to the report layer.
type Result struct {
	Summary    Summary     `json:"summary"`
	Deviations []Deviation `json:"deviations"`
}

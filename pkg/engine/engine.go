package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"sitewatch-hq/sitewatch/pkg/sop"
)

// Engine evaluates observed action streams against one procedure. An Engine
// is safe to reuse across runs: all per-run state lives in the tracker
// created inside Run.
type Engine struct {
	proc       *sop.Procedure
	matcher    *Matcher
	checker    RuleChecker
	classifier *Classifier
	cfg        *Config
	logger     *slog.Logger
}

// New creates an engine for the given procedure. The embedder is injected
// so tests can substitute a fake; step embeddings are computed here, once.
func New(ctx context.Context, proc *sop.Procedure, embedder Embedder, cfg *Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	matcher, err := NewMatcher(ctx, embedder, proc, cfg, logger)
	if err != nil {
		return nil, err
	}
	classifier, err := NewClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		proc:       proc,
		matcher:    matcher,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
	}, nil
}

// Run processes the action stream strictly in timestamp order and returns
// the deviations and summary. Non-monotonic input is recovered by a stable
// re-sort before processing; the run is never failed for input order.
//
// A provider failure or malformed action only affects that one action: it
// is flagged as unrecognized with no score and the run continues.
//
// Cancelling the context stops feeding further actions; the summary and
// deviations accumulated so far are finalized and returned, still valid.
func (e *Engine) Run(ctx context.Context, actions []ObservedAction) (*Result, error) {
	ordered := e.ensureOrdered(actions)
	tracker := NewTracker(e.proc, e.logger)

	var deviations []Deviation
	var scoreSum float64
	var scoreCount int

	for i := range ordered {
		if ctx.Err() != nil {
			e.logger.Info("run cancelled, finalizing partial results",
				"processed", i,
				"total", len(ordered),
			)
			break
		}

		action := &ordered[i]
		match := e.matchAction(ctx, i, action, tracker.ExpectedIndex())
		if match.Score != nil {
			scoreSum += *match.Score
			scoreCount++
		}

		for _, d := range tracker.Observe(match) {
			deviations = append(deviations, e.classifier.Classify(d))
		}
		if match.Step != nil {
			for _, d := range e.checker.Check(match) {
				deviations = append(deviations, e.classifier.Classify(d))
			}
		}
	}

	for _, d := range tracker.Finalize(e.cfg.OverrunFactor) {
		deviations = append(deviations, e.classifier.Classify(d))
	}

	return &Result{
		Summary:    e.summarize(tracker, deviations, scoreSum, scoreCount),
		Deviations: deviations,
	}, nil
}

// matchAction matches one action, degrading to an unrecognized no-score
// match when the action is malformed or the embedding provider fails.
// expectedIndex is the tracker's cursor, used for the continuity tie-break.
func (e *Engine) matchAction(ctx context.Context, index int, action *ObservedAction, expectedIndex int) *MatchResult {
	if strings.TrimSpace(action.Description) == "" {
		e.logger.Warn("action has empty description, marking unrecognized",
			"index", index,
			"timestamp", action.Timestamp,
		)
		return &MatchResult{Action: action}
	}

	match, err := e.matcher.Match(ctx, action, expectedIndex)
	if err != nil {
		e.logger.Warn("analysis unavailable for action",
			"index", index,
			"timestamp", action.Timestamp,
			"error", err,
		)
		return &MatchResult{Action: action}
	}
	return match
}

// ensureOrdered returns the actions sorted by timestamp. The input slice is
// never mutated; a copy is sorted only when needed.
func (e *Engine) ensureOrdered(actions []ObservedAction) []ObservedAction {
	sorted := true
	for i := 1; i < len(actions); i++ {
		if actions[i].Timestamp < actions[i-1].Timestamp {
			sorted = false
			break
		}
	}
	if sorted {
		return actions
	}

	e.logger.Warn("action stream has non-monotonic timestamps, re-sorting",
		"actions", len(actions),
	)
	ordered := make([]ObservedAction, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})
	return ordered
}

// summarize computes the end-of-run roll-up.
func (e *Engine) summarize(tracker *Tracker, deviations []Deviation, scoreSum float64, scoreCount int) Summary {
	total := len(e.proc.Steps)

	// A step counts toward compliance only when it was visited and no
	// deviation references it.
	flagged := make(map[int]bool)
	for _, d := range deviations {
		if d.Step != nil {
			flagged[d.Step.ID] = true
		}
	}
	clean := 0
	for i := range e.proc.Steps {
		id := e.proc.Steps[i].ID
		if tracker.Visited(id) && !flagged[id] {
			clean++
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(clean) / float64(total)
	}
	mean := 0.0
	if scoreCount > 0 {
		mean = scoreSum / float64(scoreCount)
	}

	bySeverity := map[Severity]int{
		SeverityLow:      0,
		SeverityMedium:   0,
		SeverityHigh:     0,
		SeverityCritical: 0,
	}
	for _, d := range deviations {
		bySeverity[d.Severity]++
	}

	return Summary{
		TaskName:             e.proc.TaskName,
		TotalSteps:           total,
		StepsMatched:         tracker.VisitedCount(),
		StepsMissing:         tracker.MissingIDs(),
		ComplianceRate:       rate,
		MeanScore:            mean,
		DeviationsBySeverity: bySeverity,
	}
}

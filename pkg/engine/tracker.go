package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"sitewatch-hq/sitewatch/pkg/sop"
)

// RunState is the lifecycle state of one tracked run.
type RunState string

const (
	// RunNotStarted: no action has been processed yet.
	RunNotStarted RunState = "not_started"

	// RunInProgress: at least one action has been processed.
	RunInProgress RunState = "in_progress"

	// RunCompleted: the last procedure step has been visited. Later
	// actions still get rule checks but raise no sequence deviations.
	RunCompleted RunState = "completed"
)

// Tracker is the per-run sequence state machine. It consumes one match
// result at a time, strictly in timestamp order, maintaining the expected
// step cursor and per-step entry/exit times.
//
// A Tracker is owned exclusively by its run and must not be shared.
type Tracker struct {
	proc          *sop.Procedure
	state         RunState
	expectedIndex int
	visited       map[int]bool
	entryTime     map[int]float64
	exitTime      map[int]float64
	logger        *slog.Logger
}

// NewTracker creates a tracker positioned at the first step of the procedure.
func NewTracker(proc *sop.Procedure, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		proc:      proc,
		state:     RunNotStarted,
		visited:   make(map[int]bool),
		entryTime: make(map[int]float64),
		exitTime:  make(map[int]float64),
		logger:    logger.With("component", "engine.tracker"),
	}
}

// State returns the current run state.
func (t *Tracker) State() RunState { return t.state }

// ExpectedIndex returns the cursor position. The cursor stays on the
// current step while repeated actions keep matching it, and never regresses.
func (t *Tracker) ExpectedIndex() int { return t.expectedIndex }

// nextExpectedStep is the next distinct step the run should move to: the
// step under the cursor if it has not been visited yet, otherwise the step
// after it. Returns nil when no further step is expected.
func (t *Tracker) nextExpectedStep() *sop.Step {
	current := t.proc.StepAt(t.expectedIndex)
	if current != nil && !t.visited[current.ID] {
		return current
	}
	return t.proc.StepAt(t.expectedIndex + 1)
}

// Observe feeds one match result into the state machine and returns any
// sequence deviations it raises (severity is assigned later by the
// classifier). Once the run is completed, matches still record entry/exit
// times but no further sequence deviations are raised.
func (t *Tracker) Observe(match *MatchResult) []Deviation {
	if t.state == RunNotStarted {
		t.state = RunInProgress
	}

	if match.Step == nil {
		if t.state == RunCompleted {
			return nil
		}
		return []Deviation{unrecognizedDeviation(match)}
	}

	// Entry is the first timestamp seen for the step, exit the last.
	id := match.Step.ID
	ts := match.Action.Timestamp
	if _, seen := t.entryTime[id]; !seen {
		t.entryTime[id] = ts
	}
	t.exitTime[id] = ts

	if t.state == RunCompleted {
		t.visited[id] = true
		return nil
	}

	pos := t.proc.IndexOf(id)
	var deviations []Deviation

	switch {
	case pos == t.expectedIndex:
		// Normal progress, or a repeated sub-action of the current step.
		t.visited[id] = true

	case pos > t.expectedIndex:
		// The run jumped ahead. Intervening unvisited steps are skipped;
		// they are not flagged here because a skipped step may still be
		// performed later out of order. The end-of-run reconciliation
		// marks whatever stays unvisited as missing.
		for i := t.expectedIndex; i < pos; i++ {
			skipped := t.proc.Steps[i]
			if !t.visited[skipped.ID] {
				t.logger.Debug("step skipped",
					"step", skipped.ID,
					"jumped_to", id,
					"timestamp", ts,
				)
			}
		}
		t.expectedIndex = pos
		t.visited[id] = true

	default:
		// A step earlier than the cursor: out of order. The cursor does
		// not regress; the first visit is what counts toward coverage.
		expected := t.nextExpectedStep()
		msg := fmt.Sprintf("step %d %q performed out of order", id, match.Step.Action)
		if expected != nil {
			msg = fmt.Sprintf("expected step %d %q but step %d %q was performed",
				expected.ID, expected.Action, id, match.Step.Action)
		}
		deviations = append(deviations, Deviation{
			Kind:    KindOutOfOrder,
			Step:    match.Step,
			Action:  match.Action,
			Score:   match.Score,
			Message: msg,
		})
		t.visited[id] = true
	}

	if last := t.proc.StepAt(len(t.proc.Steps) - 1); last != nil && t.visited[last.ID] {
		if t.state != RunCompleted {
			t.state = RunCompleted
			t.logger.Debug("run completed", "timestamp", ts)
		}
	}

	return deviations
}

// Finalize runs the end-of-run reconciliation: every step never visited
// becomes a missing-step deviation, and every visited step whose observed
// duration exceeded its allowance becomes a timing overrun. The returned
// deviations are sorted by step id.
func (t *Tracker) Finalize(overrunFactor float64) []Deviation {
	var deviations []Deviation

	for i := range t.proc.Steps {
		step := &t.proc.Steps[i]
		if !t.visited[step.ID] {
			deviations = append(deviations, Deviation{
				Kind:    KindMissingStep,
				Step:    step,
				Message: fmt.Sprintf("step %d %q was never performed", step.ID, step.Action),
			})
			continue
		}

		entry, okEntry := t.entryTime[step.ID]
		exit, okExit := t.exitTime[step.ID]
		if !okEntry || !okExit {
			continue
		}
		duration := exit - entry
		allowed := step.ExpectedDuration.Seconds() * overrunFactor
		if duration > allowed {
			deviations = append(deviations, Deviation{
				Kind: KindTimingOverrun,
				Step: step,
				Message: fmt.Sprintf("step %d took %.0fs, allowed %.0fs (expected %.0fs)",
					step.ID, duration, allowed, step.ExpectedDuration.Seconds()),
			})
		}
	}

	// Steps iterate in canonical order, so this sort is a no-op today;
	// it pins the contract rather than the iteration order.
	sort.SliceStable(deviations, func(i, j int) bool {
		return deviations[i].Step.ID < deviations[j].Step.ID
	})
	return deviations
}

// VisitedCount returns the number of distinct steps observed.
func (t *Tracker) VisitedCount() int { return len(t.visited) }

// Visited reports whether the step with the given id was observed.
func (t *Tracker) Visited(id int) bool { return t.visited[id] }

// MissingIDs returns the ids of steps never observed, in canonical order.
func (t *Tracker) MissingIDs() []int {
	missing := make([]int, 0)
	for i := range t.proc.Steps {
		if !t.visited[t.proc.Steps[i].ID] {
			missing = append(missing, t.proc.Steps[i].ID)
		}
	}
	return missing
}

// unrecognizedDeviation builds the deviation for an action that matched no
// step, distinguishing provider/analysis failures (nil score) from
// below-threshold matches.
func unrecognizedDeviation(match *MatchResult) Deviation {
	d := Deviation{
		Kind:   KindUnrecognizedAction,
		Action: match.Action,
		Score:  match.Score,
	}
	if match.Score == nil {
		d.Message = fmt.Sprintf("analysis unavailable for action at t=%.1fs", match.Action.Timestamp)
	} else {
		d.Message = fmt.Sprintf("action %q matched no procedure step (best score %.2f)",
			match.Action.Description, *match.Score)
	}
	return d
}

package sop

import "time"

// Step is a single step of a procedure. Steps are built by Load and must not
// be mutated afterwards; the identity of a step within a procedure is its ID.
type Step struct {
	// ID is the unique, 1-based step identifier. The order of IDs defines
	// the canonical execution order of the procedure.
	ID int `json:"id"`

	// Action is the natural-language description of the work performed
	// in this step. It is the text matched against observed actions.
	Action string `json:"action"`

	// ExpectedDuration is how long the step is expected to take.
	ExpectedDuration time.Duration `json:"expected_duration"`

	// RequiredTools lists the tools required for this step, lowercased.
	RequiredTools []string `json:"required_tools,omitempty"`

	// Zone is the work area where this step takes place.
	Zone string `json:"zone,omitempty"`

	// SafetyEquipment is the effective required safety equipment for this
	// step: the step's own set unioned with the procedure-level set.
	// Resolved at load time, lowercased.
	SafetyEquipment []string `json:"safety_equipment,omitempty"`
}

// Procedure is an immutable, validated Standard Operating Procedure.
type Procedure struct {
	// TaskName is the human-readable name of the task.
	TaskName string `json:"task_name"`

	// Steps is the ordered step sequence. IDs are strictly increasing.
	Steps []Step `json:"steps"`

	// RequiredTools is the procedure-level tool set, lowercased.
	RequiredTools []string `json:"tools_required,omitempty"`

	// SafetyEquipment is the procedure-level safety equipment set that
	// every step inherits, lowercased.
	SafetyEquipment []string `json:"safety_equipment,omitempty"`

	// indexByID maps step IDs to positions in Steps.
	indexByID map[int]int
}

// StepAt returns the step at position i, or nil if i is out of range.
func (p *Procedure) StepAt(i int) *Step {
	if i < 0 || i >= len(p.Steps) {
		return nil
	}
	return &p.Steps[i]
}

// IndexOf returns the position of the step with the given ID, or -1 if the
// procedure has no such step.
func (p *Procedure) IndexOf(id int) int {
	if i, ok := p.indexByID[id]; ok {
		return i
	}
	return -1
}

// StepByID returns the step with the given ID, or nil.
func (p *Procedure) StepByID(id int) *Step {
	i := p.IndexOf(id)
	if i < 0 {
		return nil
	}
	return &p.Steps[i]
}

// StepIDs returns the step IDs in canonical order.
func (p *Procedure) StepIDs() []int {
	ids := make([]int, len(p.Steps))
	for i := range p.Steps {
		ids[i] = p.Steps[i].ID
	}
	return ids
}

package engine

import (
	"fmt"
	"strings"
)

// RuleChecker runs the stateless per-action compliance checks against a
// matched step: tool use, safety equipment, and work zone. Timing is not
// checked here; it is a post-hoc end-of-run check owned by the tracker.
//
// Signals the recognizer did not report (nil slices, empty zone) are
// skipped entirely: absence of evidence is not evidence of violation.
type RuleChecker struct{}

// Check evaluates all per-action rules for a matched action and returns the
// raw deviations. match.Step must be non-nil.
func (RuleChecker) Check(match *MatchResult) []Deviation {
	step := match.Step
	action := match.Action
	var deviations []Deviation

	if action.Tools != nil && len(step.RequiredTools) > 0 {
		observed := normalize(action.Tools)
		if !intersects(observed, step.RequiredTools) {
			deviations = append(deviations, Deviation{
				Kind:   KindWrongTool,
				Step:   step,
				Action: action,
				Score:  match.Score,
				Message: fmt.Sprintf("step %d requires %s; observed %s",
					step.ID, joinSet(step.RequiredTools), joinSet(observed)),
			})
		}
	}

	if action.SafetyEquipment != nil && len(step.SafetyEquipment) > 0 {
		observed := normalize(action.SafetyEquipment)
		missing := difference(step.SafetyEquipment, observed)
		if len(missing) > 0 {
			deviations = append(deviations, Deviation{
				Kind:   KindMissingSafetyEquipment,
				Step:   step,
				Action: action,
				Score:  match.Score,
				Message: fmt.Sprintf("step %d requires safety equipment %s; missing %s",
					step.ID, joinSet(step.SafetyEquipment), joinSet(missing)),
			})
		}
	}

	if action.Zone != "" && step.Zone != "" {
		zone := strings.ToLower(strings.TrimSpace(action.Zone))
		if zone != step.Zone {
			deviations = append(deviations, Deviation{
				Kind:   KindWrongZone,
				Step:   step,
				Action: action,
				Score:  match.Score,
				Message: fmt.Sprintf("step %d belongs in zone %q; worker observed in %q",
					step.ID, step.Zone, zone),
			})
		}
	}

	return deviations
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

// difference returns the elements of required not present in observed,
// preserving required's order.
func difference(required, observed []string) []string {
	set := make(map[string]bool, len(observed))
	for _, v := range observed {
		set[v] = true
	}
	var missing []string
	for _, v := range required {
		if !set[v] {
			missing = append(missing, v)
		}
	}
	return missing
}

func joinSet(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return "[" + strings.Join(values, ", ") + "]"
}

package sop

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// definition is the raw on-disk shape of a procedure. YAML is a superset of
// JSON, so a single decoder handles both formats.
type definition struct {
	TaskName        string           `yaml:"task_name"`
	Steps           []stepDefinition `yaml:"steps"`
	ToolsRequired   []string         `yaml:"tools_required"`
	SafetyEquipment []string         `yaml:"safety_equipment"`
}

type stepDefinition struct {
	ID              int      `yaml:"id"`
	Action          string   `yaml:"action"`
	ExpectedTime    int      `yaml:"expected_time"`
	RequiredTools   []string `yaml:"required_tools"`
	Zone            string   `yaml:"zone"`
	SafetyEquipment []string `yaml:"safety_equipment"`
}

// Load reads a procedure definition from a YAML or JSON file, validates it,
// and returns the immutable Procedure. It returns a *ConfigError if the
// definition is malformed.
func Load(path string) (*Procedure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read procedure definition %q: %w", path, err)
	}

	proc, err := Parse(data)
	if err != nil {
		if cfgErr, ok := err.(*ConfigError); ok {
			cfgErr.Path = path
		}
		return nil, err
	}
	return proc, nil
}

// Parse validates a raw procedure definition and builds the Procedure.
// It returns a *ConfigError listing every invalid field.
func Parse(data []byte) (*Procedure, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &ConfigError{Errors: []FieldError{
			{Field: "(document)", Message: fmt.Sprintf("parse error: %v", err)},
		}}
	}

	var errs []FieldError

	if len(def.Steps) == 0 {
		errs = append(errs, FieldError{Field: "steps", Message: "at least one step is required"})
	}

	errs = append(errs, validateSet("tools_required", def.ToolsRequired)...)
	errs = append(errs, validateSet("safety_equipment", def.SafetyEquipment)...)

	seen := make(map[int]int, len(def.Steps))
	lastID := 0
	for i, sd := range def.Steps {
		field := func(name string) string { return fmt.Sprintf("steps[%d].%s", i, name) }

		if sd.ID <= 0 {
			errs = append(errs, FieldError{Field: field("id"), Message: "id must be a positive integer"})
		} else if prev, dup := seen[sd.ID]; dup {
			errs = append(errs, FieldError{
				Field:   field("id"),
				Message: fmt.Sprintf("duplicate id %d (already used by steps[%d])", sd.ID, prev),
			})
		} else {
			seen[sd.ID] = i
			if sd.ID <= lastID {
				errs = append(errs, FieldError{
					Field:   field("id"),
					Message: fmt.Sprintf("ids must be strictly increasing (%d follows %d)", sd.ID, lastID),
				})
			}
			lastID = sd.ID
		}

		if strings.TrimSpace(sd.Action) == "" {
			errs = append(errs, FieldError{Field: field("action"), Message: "action text is required"})
		}
		if sd.ExpectedTime <= 0 {
			errs = append(errs, FieldError{Field: field("expected_time"), Message: "expected_time must be > 0 seconds"})
		}
		errs = append(errs, validateSet(field("required_tools"), sd.RequiredTools)...)
		errs = append(errs, validateSet(field("safety_equipment"), sd.SafetyEquipment)...)
	}

	if len(errs) > 0 {
		return nil, &ConfigError{Errors: errs}
	}

	globalSafety := normalizeSet(def.SafetyEquipment)

	proc := &Procedure{
		TaskName:        def.TaskName,
		Steps:           make([]Step, len(def.Steps)),
		RequiredTools:   normalizeSet(def.ToolsRequired),
		SafetyEquipment: globalSafety,
		indexByID:       make(map[int]int, len(def.Steps)),
	}

	for i, sd := range def.Steps {
		proc.Steps[i] = Step{
			ID:               sd.ID,
			Action:           strings.TrimSpace(sd.Action),
			ExpectedDuration: time.Duration(sd.ExpectedTime) * time.Second,
			RequiredTools:    normalizeSet(sd.RequiredTools),
			Zone:             strings.ToLower(strings.TrimSpace(sd.Zone)),
			SafetyEquipment:  unionSets(normalizeSet(sd.SafetyEquipment), globalSafety),
		}
		proc.indexByID[sd.ID] = i
	}

	return proc, nil
}

// validateSet checks that every entry of a string set is non-empty.
func validateSet(field string, values []string) []FieldError {
	var errs []FieldError
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "entries must be non-empty strings",
			})
		}
	}
	return errs
}

// normalizeSet lowercases, trims, and deduplicates a string set, preserving
// first-seen order.
func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// unionSets merges two normalized sets into a sorted union.
func unionSets(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

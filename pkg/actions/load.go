package actions

import (
	"encoding/json"
	"fmt"
	"os"

	"sitewatch-hq/sitewatch/pkg/engine"
)

// rawAction mirrors one recognizer record on the wire. Legacy aliases are
// kept as separate fields; resolve() folds them into the canonical ones.
type rawAction struct {
	Timestamp   *float64 `json:"timestamp"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	Safety      []string `json:"safety_equipment"`
	Zone        string   `json:"zone"`

	// Legacy recognizer field names.
	WorkerAction string   `json:"worker_action"`
	ToolsVisible []string `json:"tools_visible"`
	LocationZone string   `json:"location_zone"`
}

// rawStream accepts the enveloped form {"actions": [...]}.
type rawStream struct {
	Actions []rawAction `json:"actions"`
}

// Load reads an observed action stream from a JSON file.
func Load(path string) ([]engine.ObservedAction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file %s: %w", path, err)
	}
	stream, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stream, nil
}

// Parse decodes an observed action stream from JSON. Both a bare array and
// an object with an "actions" array are accepted.
func Parse(data []byte) ([]engine.ObservedAction, error) {
	var raw []rawAction
	if err := json.Unmarshal(data, &raw); err != nil {
		var envelope rawStream
		if envErr := json.Unmarshal(data, &envelope); envErr != nil {
			return nil, fmt.Errorf("failed to parse actions: %w", err)
		}
		raw = envelope.Actions
	}

	out := make([]engine.ObservedAction, 0, len(raw))
	for i, r := range raw {
		action, err := r.resolve()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, action)
	}
	return out, nil
}

// resolve folds legacy aliases into the canonical fields and validates the
// record. Canonical fields win when both are present.
func (r rawAction) resolve() (engine.ObservedAction, error) {
	description := r.Description
	if description == "" {
		description = r.WorkerAction
	}
	tools := r.Tools
	if tools == nil {
		tools = r.ToolsVisible
	}
	zone := r.Zone
	if zone == "" {
		zone = r.LocationZone
	}

	if r.Timestamp == nil {
		return engine.ObservedAction{}, fmt.Errorf("timestamp is required")
	}
	if *r.Timestamp < 0 {
		return engine.ObservedAction{}, fmt.Errorf("timestamp cannot be negative, got %g", *r.Timestamp)
	}
	// A missing description is not a load error: the engine reports such
	// actions as unanalyzable rather than refusing the whole stream.

	return engine.ObservedAction{
		Timestamp:       *r.Timestamp,
		Description:     description,
		Tools:           tools,
		SafetyEquipment: r.Safety,
		Zone:            zone,
	}, nil
}

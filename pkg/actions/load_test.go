package actions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_CanonicalFields(t *testing.T) {
	data := []byte(`[
		{
			"timestamp": 12.5,
			"description": "Worker measuring the wall",
			"tools": ["tape measure"],
			"safety_equipment": [],
			"zone": "Work Area"
		}
	]`)

	stream, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(stream) != 1 {
		t.Fatalf("len = %d, want 1", len(stream))
	}

	a := stream[0]
	if a.Timestamp != 12.5 {
		t.Errorf("Timestamp = %g", a.Timestamp)
	}
	if a.Description != "Worker measuring the wall" {
		t.Errorf("Description = %q", a.Description)
	}
	if len(a.Tools) != 1 || a.Tools[0] != "tape measure" {
		t.Errorf("Tools = %v", a.Tools)
	}
	// Reported-but-empty must stay an empty slice, not nil.
	if a.SafetyEquipment == nil || len(a.SafetyEquipment) != 0 {
		t.Errorf("SafetyEquipment = %#v, want empty non-nil slice", a.SafetyEquipment)
	}
	if a.Zone != "Work Area" {
		t.Errorf("Zone = %q", a.Zone)
	}
}

func TestParse_AbsentFieldsStayNil(t *testing.T) {
	stream, err := Parse([]byte(`[{"timestamp": 0, "description": "x"}]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	a := stream[0]
	if a.Tools != nil {
		t.Errorf("Tools = %#v, want nil for absent field", a.Tools)
	}
	if a.SafetyEquipment != nil {
		t.Errorf("SafetyEquipment = %#v, want nil for absent field", a.SafetyEquipment)
	}
	if a.Zone != "" {
		t.Errorf("Zone = %q, want empty", a.Zone)
	}
}

func TestParse_LegacyFieldNames(t *testing.T) {
	data := []byte(`[
		{
			"timestamp": 3,
			"worker_action": "Worker cutting drywall",
			"tools_visible": ["utility knife"],
			"location_zone": "cutting area"
		}
	]`)

	stream, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	a := stream[0]
	if a.Description != "Worker cutting drywall" {
		t.Errorf("Description = %q", a.Description)
	}
	if len(a.Tools) != 1 || a.Tools[0] != "utility knife" {
		t.Errorf("Tools = %v", a.Tools)
	}
	if a.Zone != "cutting area" {
		t.Errorf("Zone = %q", a.Zone)
	}
}

func TestParse_CanonicalWinsOverLegacy(t *testing.T) {
	data := []byte(`[
		{
			"timestamp": 3,
			"description": "canonical",
			"worker_action": "legacy",
			"zone": "a",
			"location_zone": "b"
		}
	]`)

	stream, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stream[0].Description != "canonical" || stream[0].Zone != "a" {
		t.Errorf("legacy fields overrode canonical ones: %+v", stream[0])
	}
}

func TestParse_Envelope(t *testing.T) {
	data := []byte(`{"actions": [{"timestamp": 1, "description": "x"}]}`)
	stream, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(stream) != 1 {
		t.Errorf("len = %d, want 1", len(stream))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{{`},
		{name: "missing timestamp", data: `[{"description": "x"}]`},
		{name: "negative timestamp", data: `[{"timestamp": -1, "description": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_MissingDescriptionIsTolerated(t *testing.T) {
	stream, err := Parse([]byte(`[{"timestamp": 5}]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stream[0].Description != "" {
		t.Errorf("Description = %q, want empty", stream[0].Description)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	if err := os.WriteFile(path, []byte(`[{"timestamp": 0, "description": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	stream, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(stream) != 1 {
		t.Errorf("len = %d, want 1", len(stream))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
)

func sampleRecords() []*report.RunRecord {
	return []*report.RunRecord{
		{
			ID:             "run-1",
			TaskName:       "Drywall Installation",
			CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			ActionCount:    4,
			TotalSteps:     4,
			StepsMatched:   3,
			StepsMissing:   []int{4},
			ComplianceRate: 0.75,
			MeanScore:      0.8,
			Grade:          "C - Acceptable",
			Deviations: []engine.Deviation{
				{Kind: engine.KindMissingStep, Severity: engine.SeverityHigh, Message: "step 4 never performed"},
			},
			DeviationCounts: map[engine.Severity]int{engine.SeverityHigh: 1},
		},
		{
			ID:              "run-2",
			TaskName:        "Drywall Installation",
			CreatedAt:       time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
			ComplianceRate:  1,
			Grade:           "A - Excellent",
			DeviationCounts: map[engine.Severity]int{},
		},
	}
}

func TestJSONExporter_SingleRecordIsObject(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONExporter(false)

	if err := e.Export(context.Background(), sampleRecords()[:1], &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded report.RunRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a single object: %v", err)
	}
	if decoded.ID != "run-1" || len(decoded.Deviations) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestJSONExporter_MultipleRecordsAreArray(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONExporter(true)

	if err := e.Export(context.Background(), sampleRecords(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded []report.RunRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not an array: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("len = %d, want 2", len(decoded))
	}
	if !strings.Contains(buf.String(), "\n") {
		t.Error("pretty output is not indented")
	}
}

func TestJSONExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("output = %q, want []", buf.String())
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	e := NewCSVExporter(true)

	if err := e.Export(context.Background(), sampleRecords(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("header = %v", rows[0])
	}

	byName := make(map[string]string)
	for i, col := range rows[0] {
		byName[col] = rows[1][i]
	}
	if byName["task_name"] != "Drywall Installation" {
		t.Errorf("task_name = %q", byName["task_name"])
	}
	if byName["compliance_rate"] != "0.7500" {
		t.Errorf("compliance_rate = %q", byName["compliance_rate"])
	}
	if byName["high"] != "1" {
		t.Errorf("high = %q", byName["high"])
	}
	if byName["steps_missing"] != "4" {
		t.Errorf("steps_missing = %q", byName["steps_missing"])
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), sampleRecords()[:1], &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Errorf("rows = %d, %v; want exactly 1 data row", len(rows), err)
	}
}

package engine

import (
	"testing"

	"sitewatch-hq/sitewatch/pkg/sop"
)

func newTestClassifier(t *testing.T, cfg *Config) *Classifier {
	t.Helper()
	c, err := NewClassifier(cfg, nil)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return c
}

func TestClassifier_DefaultTable(t *testing.T) {
	c := newTestClassifier(t, nil)

	tests := []struct {
		kind DeviationKind
		want Severity
	}{
		{KindMissingSafetyEquipment, SeverityCritical},
		{KindMissingStep, SeverityHigh},
		{KindWrongTool, SeverityMedium},
		{KindTimingOverrun, SeverityMedium},
		{KindOutOfOrder, SeverityLow},
		{KindWrongZone, SeverityLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := c.Classify(Deviation{Kind: tt.kind})
			if got.Severity != tt.want {
				t.Errorf("Classify(%s).Severity = %s, want %s", tt.kind, got.Severity, tt.want)
			}
		})
	}
}

func TestClassifier_UnrecognizedConfidenceBand(t *testing.T) {
	// Threshold 0.70: scores at or above 0.55 are near-misses.
	c := newTestClassifier(t, nil)

	score := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		score *float64
		want  Severity
	}{
		{name: "near miss", score: score(0.65), want: SeverityLow},
		{name: "exactly at band edge", score: score(0.55), want: SeverityLow},
		{name: "just below band", score: score(0.54), want: SeverityMedium},
		{name: "wildly dissimilar", score: score(0.1), want: SeverityMedium},
		{name: "analysis unavailable", score: nil, want: SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(Deviation{Kind: KindUnrecognizedAction, Score: tt.score})
			if got.Severity != tt.want {
				t.Errorf("Severity = %s, want %s", got.Severity, tt.want)
			}
		})
	}
}

func TestClassifier_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeverityOverrides = map[DeviationKind]Severity{
		KindWrongZone: SeverityHigh,
	}
	c := newTestClassifier(t, cfg)

	if got := c.Classify(Deviation{Kind: KindWrongZone}); got.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high from override", got.Severity)
	}
	// Kinds without an override keep the default.
	if got := c.Classify(Deviation{Kind: KindMissingStep}); got.Severity != SeverityHigh {
		t.Errorf("Severity = %s, want high default", got.Severity)
	}
}

func TestClassifier_EscalationRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EscalationRules = []EscalationRule{
		{When: `kind == "wrong_zone" && zone == "crane zone"`, Severity: SeverityCritical},
		{When: `timestamp > 100`, Severity: SeverityHigh},
	}
	c := newTestClassifier(t, cfg)

	step := &sop.Step{ID: 2, Zone: "crane zone"}

	t.Run("matching rule escalates", func(t *testing.T) {
		d := c.Classify(Deviation{Kind: KindWrongZone, Step: step})
		if d.Severity != SeverityCritical {
			t.Errorf("Severity = %s, want critical", d.Severity)
		}
	})

	t.Run("last matching rule wins", func(t *testing.T) {
		d := c.Classify(Deviation{
			Kind:   KindWrongZone,
			Step:   step,
			Action: &ObservedAction{Timestamp: 120},
		})
		if d.Severity != SeverityHigh {
			t.Errorf("Severity = %s, want high from later rule", d.Severity)
		}
	})

	t.Run("non-matching rules keep base severity", func(t *testing.T) {
		d := c.Classify(Deviation{
			Kind:   KindWrongZone,
			Step:   &sop.Step{ID: 1, Zone: "work area"},
			Action: &ObservedAction{Timestamp: 50},
		})
		if d.Severity != SeverityLow {
			t.Errorf("Severity = %s, want low", d.Severity)
		}
	})
}

func TestNewClassifier_RejectsMalformedRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EscalationRules = []EscalationRule{
		{When: `kind ==`, Severity: SeverityHigh},
	}
	if _, err := NewClassifier(cfg, nil); err == nil {
		t.Error("expected compile error for malformed rule")
	}
}

func TestSeverityRank(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Rank(%s) = %d not above Rank(%s) = %d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if got, ok := ParseSeverity("critical"); !ok || got != SeverityCritical {
		t.Errorf("ParseSeverity(critical) = %v, %v", got, ok)
	}
	if _, ok := ParseSeverity("fatal"); ok {
		t.Error("expected failure for unknown severity")
	}
}

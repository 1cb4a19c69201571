package engine

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// unrecognizedConfidenceBand is how far below the similarity threshold a
// score may fall while the unrecognized action still classifies as low
// severity: a near-miss is less alarming than a wildly dissimilar action.
const unrecognizedConfidenceBand = 0.15

// defaultSeverityTable is the default kind-to-severity policy. Overridable
// per kind through Config.SeverityOverrides; unrecognized actions get a
// confidence-dependent severity instead of a fixed entry.
var defaultSeverityTable = map[DeviationKind]Severity{
	KindMissingSafetyEquipment: SeverityCritical,
	KindMissingStep:            SeverityHigh,
	KindWrongTool:              SeverityMedium,
	KindTimingOverrun:          SeverityMedium,
	KindOutOfOrder:             SeverityLow,
	KindWrongZone:              SeverityLow,
}

// Classifier assigns severities to raw deviations using the policy table
// and optional escalation rules.
type Classifier struct {
	table     map[DeviationKind]Severity
	threshold float64
	rules     []compiledRule
	logger    *slog.Logger
}

type compiledRule struct {
	source  EscalationRule
	program *vm.Program
}

// NewClassifier builds a classifier from the engine configuration,
// compiling any escalation rule expressions up front so malformed rules are
// rejected before the run starts.
func NewClassifier(cfg *Config, logger *slog.Logger) (*Classifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	table := make(map[DeviationKind]Severity, len(defaultSeverityTable))
	for kind, sev := range defaultSeverityTable {
		table[kind] = sev
	}
	for kind, sev := range cfg.SeverityOverrides {
		table[kind] = sev
	}

	rules := make([]compiledRule, 0, len(cfg.EscalationRules))
	for i, rule := range cfg.EscalationRules {
		program, err := expr.Compile(rule.When, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("escalation rule %d (%q): %w", i, rule.When, err)
		}
		rules = append(rules, compiledRule{source: rule, program: program})
	}

	return &Classifier{
		table:     table,
		threshold: cfg.SimilarityThreshold,
		rules:     rules,
		logger:    logger.With("component", "engine.classifier"),
	}, nil
}

// Classify assigns a severity to the deviation and returns it. The base
// severity comes from the policy table (or, for unrecognized actions, from
// the confidence band around the threshold); escalation rules then run in
// order, the last matching rule winning.
func (c *Classifier) Classify(d Deviation) Deviation {
	if d.Kind == KindUnrecognizedAction {
		d.Severity = c.unrecognizedSeverity(d.Score)
	} else if sev, ok := c.table[d.Kind]; ok {
		d.Severity = sev
	} else {
		d.Severity = SeverityMedium
	}

	for _, rule := range c.rules {
		matched, err := c.evalRule(rule, d)
		if err != nil {
			// A broken rule must not drop the deviation; keep the
			// severity assigned so far.
			c.logger.Warn("escalation rule failed",
				"condition", rule.source.When,
				"error", err,
			)
			continue
		}
		if matched {
			d.Severity = rule.source.Severity
		}
	}
	return d
}

// unrecognizedSeverity: a score within the confidence band below the
// threshold is a plausible near-miss (low); anything further off, or an
// action whose analysis was unavailable, is medium.
func (c *Classifier) unrecognizedSeverity(score *float64) Severity {
	if score == nil {
		return SeverityMedium
	}
	if *score >= c.threshold-unrecognizedConfidenceBand {
		return SeverityLow
	}
	return SeverityMedium
}

func (c *Classifier) evalRule(rule compiledRule, d Deviation) (bool, error) {
	score := -1.0
	if d.Score != nil {
		score = *d.Score
	}
	stepID := 0
	zone := ""
	if d.Step != nil {
		stepID = d.Step.ID
		zone = d.Step.Zone
	}
	timestamp := -1.0
	if d.Action != nil {
		timestamp = d.Action.Timestamp
	}

	env := map[string]any{
		"kind":      string(d.Kind),
		"severity":  string(d.Severity),
		"score":     score,
		"step":      stepID,
		"zone":      zone,
		"timestamp": timestamp,
	}

	out, err := expr.Run(rule.program, env)
	if err != nil {
		return false, err
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition must evaluate to bool, got %T", out)
	}
	return matched, nil
}

package engine

import "fmt"

// Config contains the tunable parameters of the compliance engine.
type Config struct {
	// SimilarityThreshold is the minimum score for an observed action to
	// count as a match against a procedure step. The bound is closed: an
	// action scoring exactly the threshold is matched.
	// Default: 0.70.
	SimilarityThreshold float64

	// ScoreEpsilon is the floating-point tolerance within which two step
	// scores are considered tied. Ties are broken toward procedural
	// continuity (the step closest to the cursor), then toward the lower
	// step id. This avoids spurious out-of-order flags from noise-level
	// score differences.
	// Default: 1e-6.
	ScoreEpsilon float64

	// OverrunFactor scales a step's expected duration into its allowed
	// duration for the timing check: a step overruns when its observed
	// duration exceeds expected * OverrunFactor.
	// Default: 1.5.
	OverrunFactor float64

	// SeverityOverrides replaces the default severity for the given
	// deviation kinds.
	SeverityOverrides map[DeviationKind]Severity

	// EscalationRules are evaluated against each classified deviation in
	// order; the last rule whose condition holds sets the final severity.
	EscalationRules []EscalationRule
}

// EscalationRule overrides a deviation's severity when its condition holds.
// Conditions are boolean expressions over the variables kind, severity,
// score, step, timestamp, and zone (e.g. `kind == "wrong_tool" && score < 0.3`).
// When no score is known, score is -1.
type EscalationRule struct {
	// When is the boolean condition expression.
	When string `yaml:"when"`

	// Severity is the severity to assign when the condition holds.
	Severity Severity `yaml:"severity"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold: 0.70,
		ScoreEpsilon:        1e-6,
		OverrunFactor:       1.5,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0,1], got %g", c.SimilarityThreshold)
	}
	if c.ScoreEpsilon < 0 {
		return fmt.Errorf("score epsilon must be non-negative, got %g", c.ScoreEpsilon)
	}
	if c.OverrunFactor <= 0 {
		return fmt.Errorf("overrun factor must be positive, got %g", c.OverrunFactor)
	}
	for kind, sev := range c.SeverityOverrides {
		if _, ok := ParseSeverity(string(sev)); !ok {
			return fmt.Errorf("severity override for %q: unknown severity %q", kind, sev)
		}
	}
	for i, rule := range c.EscalationRules {
		if rule.When == "" {
			return fmt.Errorf("escalation rule %d: condition is empty", i)
		}
		if _, ok := ParseSeverity(string(rule.Severity)); !ok {
			return fmt.Errorf("escalation rule %d: unknown severity %q", i, rule.Severity)
		}
	}
	return nil
}

package config

import (
	"fmt"

	"sitewatch-hq/sitewatch/pkg/engine"
)

// EngineConfig converts the YAML engine section into the typed engine
// configuration. Severity names are parsed here so bad values surface as
// errors instead of silently classifying everything wrong.
func (c *EngineConfig) EngineConfig() (*engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.SimilarityThreshold = c.SimilarityThreshold
	cfg.ScoreEpsilon = c.ScoreEpsilon
	cfg.OverrunFactor = c.OverrunFactor

	if len(c.SeverityOverrides) > 0 {
		cfg.SeverityOverrides = make(map[engine.DeviationKind]engine.Severity, len(c.SeverityOverrides))
		for kind, sev := range c.SeverityOverrides {
			parsed, ok := engine.ParseSeverity(sev)
			if !ok {
				return nil, fmt.Errorf("severity override for %q: unknown severity %q", kind, sev)
			}
			cfg.SeverityOverrides[engine.DeviationKind(kind)] = parsed
		}
	}

	for i, rule := range c.EscalationRules {
		parsed, ok := engine.ParseSeverity(rule.Severity)
		if !ok {
			return nil, fmt.Errorf("escalation rule %d: unknown severity %q", i, rule.Severity)
		}
		cfg.EscalationRules = append(cfg.EscalationRules, engine.EscalationRule{
			When:     rule.When,
			Severity: parsed,
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package cli

import "sitewatch-hq/sitewatch/pkg/engine"

// Process exit codes for the run command.
const (
	// ExitClean means the run completed with no deviations.
	ExitClean = 0

	// ExitDeviations means deviations were detected, none of them high
	// or critical.
	ExitDeviations = 1

	// ExitSevere means at least one high or critical deviation was
	// detected.
	ExitSevere = 2
)

// ExitCodeFor maps an analysis result to a process exit code.
func ExitCodeFor(result *engine.Result) int {
	if result == nil || len(result.Deviations) == 0 {
		return ExitClean
	}
	for _, d := range result.Deviations {
		if d.Severity == engine.SeverityHigh || d.Severity == engine.SeverityCritical {
			return ExitSevere
		}
	}
	return ExitDeviations
}

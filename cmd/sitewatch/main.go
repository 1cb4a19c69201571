// Sitewatch is an SOP compliance engine for construction site monitoring.
//
// It consumes a Standard Operating Procedure definition and a stream of
// observed worker actions from an external action recognizer, matches
// actions to procedure steps by embedding similarity, and reports
// sequence, rule, and timing deviations with severities.
//
// Usage:
//
//	# Analyze an action stream against a procedure
//	sitewatch run --sop drywall.yaml --actions shift-042.json
//
//	# Validate a procedure definition
//	sitewatch validate --sop drywall.yaml
//
//	# Query stored run records
//	sitewatch report list --task "Drywall Installation"
//
//	# Monitor a directory of recognizer output files
//	sitewatch watch --config /etc/sitewatch/config.yaml
package main

func main() {
	Execute()
}

package report

import (
	"fmt"
	"strings"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"
)

const rule = "------------------------------------------------------------"

// FormatTimestamp converts a timestamp in seconds to MM:SS.
func FormatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// DeviationAlert renders one deviation as an operator-facing alert block.
func DeviationAlert(d engine.Deviation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COMPLIANCE ALERT - %s SEVERITY [%s]\n",
		strings.ToUpper(string(d.Severity)), d.Kind)
	b.WriteString(rule + "\n")

	if d.Action != nil {
		fmt.Fprintf(&b, "Time: %s\n", FormatTimestamp(d.Action.Timestamp))
	}
	if d.Step != nil {
		fmt.Fprintf(&b, "Step #%d\n", d.Step.ID)
	}
	b.WriteString("\n")

	if d.Step != nil {
		fmt.Fprintf(&b, "Expected:\n  %s\n\n", d.Step.Action)
	}
	if d.Action != nil && d.Action.Description != "" {
		fmt.Fprintf(&b, "Observed:\n  %s\n\n", d.Action.Description)
	}
	if d.Score != nil {
		fmt.Fprintf(&b, "Similarity Score: %.1f%%\n\n", *d.Score*100)
	}

	fmt.Fprintf(&b, "  %s\n", d.Message)
	b.WriteString(rule + "\n")
	return b.String()
}

// Alerts renders alert blocks for every deviation in the result.
func Alerts(result *engine.Result) []string {
	alerts := make([]string, 0, len(result.Deviations))
	for _, d := range result.Deviations {
		alerts = append(alerts, DeviationAlert(d))
	}
	return alerts
}

// SummaryReport renders the end-of-run report: grade, statistics, a
// deviation timeline, and recommendations.
func SummaryReport(record *RunRecord) string {
	var b strings.Builder
	wide := strings.Repeat("=", 64)
	thin := strings.Repeat("-", 64)

	b.WriteString(wide + "\n")
	b.WriteString("            SOP COMPLIANCE REPORT\n")
	b.WriteString(wide + "\n\n")

	fmt.Fprintf(&b, "Task:      %s\n", record.TaskName)
	fmt.Fprintf(&b, "Generated: %s\n", record.CreatedAt.Format(time.RFC3339))
	if record.ID != "" {
		fmt.Fprintf(&b, "Run ID:    %s\n", record.ID)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "OVERALL COMPLIANCE GRADE: %s\n\n", record.Grade)

	b.WriteString("STATISTICS\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "Actions Analyzed:          %d\n", record.ActionCount)
	fmt.Fprintf(&b, "Steps Matched:             %d of %d\n", record.StepsMatched, record.TotalSteps)
	fmt.Fprintf(&b, "Compliance Rate:           %.1f%%\n", record.ComplianceRate*100)
	fmt.Fprintf(&b, "Average Similarity Score:  %.1f%%\n", record.MeanScore*100)
	fmt.Fprintf(&b, "Total Deviations:          %d\n", len(record.Deviations))
	for _, sev := range []engine.Severity{
		engine.SeverityCritical, engine.SeverityHigh, engine.SeverityMedium, engine.SeverityLow,
	} {
		if n := record.DeviationCounts[sev]; n > 0 {
			fmt.Fprintf(&b, "  %-8s %d\n", string(sev)+":", n)
		}
	}
	if len(record.StepsMissing) > 0 {
		fmt.Fprintf(&b, "Steps Never Performed:     %s\n", joinIDs(record.StepsMissing))
	}
	b.WriteString("\n")

	if len(record.Deviations) > 0 {
		b.WriteString("DEVIATION TIMELINE\n")
		b.WriteString(thin + "\n")
		shown := record.Deviations
		const maxShown = 10
		if len(shown) > maxShown {
			shown = shown[:maxShown]
		}
		for i, d := range shown {
			ts := "--:--"
			if d.Action != nil {
				ts = FormatTimestamp(d.Action.Timestamp)
			}
			step := "-"
			if d.Step != nil {
				step = fmt.Sprintf("#%d", d.Step.ID)
			}
			fmt.Fprintf(&b, "%2d. %s  %-8s  %-24s step %s\n",
				i+1, ts, strings.ToUpper(string(d.Severity)), d.Kind, step)
		}
		if extra := len(record.Deviations) - maxShown; extra > 0 {
			fmt.Fprintf(&b, "... and %d more deviations\n", extra)
		}
		b.WriteString("\n")
	}

	if recs := recommendations(record); len(recs) > 0 {
		b.WriteString("RECOMMENDATIONS\n")
		b.WriteString(thin + "\n")
		for _, r := range recs {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	b.WriteString(wide + "\n")
	return b.String()
}

// recommendations derives followup advice from the deviation mix.
func recommendations(record *RunRecord) []string {
	var recs []string
	byKind := make(map[engine.DeviationKind]int)
	for _, d := range record.Deviations {
		byKind[d.Kind]++
	}

	if byKind[engine.KindMissingSafetyEquipment] > 0 {
		recs = append(recs, "CRITICAL: ensure all workers wear the required safety equipment")
	}
	if byKind[engine.KindWrongTool] > 0 {
		recs = append(recs, "Provide tool training and verify the correct tools are available on site")
	}
	if byKind[engine.KindMissingStep] > 0 {
		recs = append(recs, "Review skipped steps with the crew before the next run")
	}
	if byKind[engine.KindTimingOverrun] > 0 {
		recs = append(recs, "Investigate steps that ran long; expected durations may need revisiting")
	}
	if record.ComplianceRate < 0.7 {
		recs = append(recs, "Consider additional procedure training and closer supervision")
	}
	if record.CountAtOrAbove(engine.SeverityHigh) > 0 {
		recs = append(recs, "URGENT: review high-severity deviations immediately")
	}
	return recs
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

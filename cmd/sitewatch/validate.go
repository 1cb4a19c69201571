package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitewatch-hq/sitewatch/pkg/cli"
	"sitewatch-hq/sitewatch/pkg/sop"
)

var validateFlags struct {
	sopPath string
	format  string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a procedure definition",
	Long: `Validate a Standard Operating Procedure definition file.

The validator checks structural rules (non-empty task name, at least one
step, unique strictly increasing step IDs, non-empty step actions,
non-negative durations) and reports every problem found, not just the
first.

Examples:
  # Validate a procedure
  sitewatch validate --sop drywall.yaml

  # Machine-readable output
  sitewatch validate --sop drywall.yaml --format json`,
	RunE: validateProcedure,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.sopPath, "sop", "", "procedure definition file (required)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")

	validateCmd.MarkFlagRequired("sop")
}

func validateProcedure(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	proc, err := sop.Load(validateFlags.sopPath)
	if err != nil {
		if format == cli.FormatJSON {
			payload := map[string]any{
				"valid": false,
				"file":  validateFlags.sopPath,
				"error": err.Error(),
			}
			cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, payload)
			return &cli.ExitError{Code: 1}
		}
		fmt.Printf("INVALID %s\n%v\n", validateFlags.sopPath, err)
		return &cli.ExitError{Code: 1}
	}

	if format == cli.FormatJSON {
		payload := map[string]any{
			"valid":     true,
			"file":      validateFlags.sopPath,
			"task_name": proc.TaskName,
			"steps":     len(proc.Steps),
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, payload)
	}

	fmt.Printf("OK %s\n", validateFlags.sopPath)
	fmt.Printf("Task: %s\n", proc.TaskName)
	fmt.Printf("Steps: %d\n", len(proc.Steps))
	for _, step := range proc.Steps {
		fmt.Printf("  %d. %s", step.ID, step.Action)
		if step.Zone != "" {
			fmt.Printf(" [zone: %s]", step.Zone)
		}
		fmt.Println()
	}
	return nil
}

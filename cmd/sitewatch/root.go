package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitewatch-hq/sitewatch/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitewatch",
	Short: "Sitewatch - SOP compliance engine for site monitoring",
	Long: `Sitewatch matches observed worker actions against a Standard Operating
Procedure and reports compliance deviations.

It consumes recognizer output (timestamped action descriptions with tool,
safety equipment, and zone signals), matches each action to procedure steps
by embedding similarity, and detects:
  - Sequence deviations (missing steps, out-of-order execution)
  - Rule violations (wrong tool, missing safety equipment, wrong zone)
  - Timing overruns against expected step durations

Results are rendered as compliance alerts and stored for later querying.`,
	Version: Version,
}

// Execute runs the root command. Analysis outcomes surface as process
// exit codes: 0 clean, 1 deviations present, 2 high or critical severity
// present.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Deviation exit codes must not trigger cobra's usage dump.
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

/*
Package cli provides command-line interface utilities for sitewatch.

The cli package includes output formatters, progress reporting, exit code
mapping, and signal handling used by the sitewatch command.

Output Formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, records); err != nil {
		return err
	}

Exit Codes:

Analysis results map to process exit codes so scripts and CI can gate on
compliance: 0 for a clean run, 1 when any deviation was detected, 2 when
any deviation is high or critical severity.

Signal Handling:

	ctx := cli.SetupSignalHandler()
	// ctx is cancelled on SIGINT/SIGTERM
*/
package cli

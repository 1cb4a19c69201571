package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sitewatch-hq/sitewatch/pkg/cli"
	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/report/export"
	"sitewatch-hq/sitewatch/pkg/report/retention"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query and manage stored run records",
	Long: `Query, export, and prune stored analysis run records.

Examples:
  # List recent runs
  sitewatch report list

  # List runs for one task below a compliance threshold
  sitewatch report list --task "Drywall Installation" --max-rate 0.8

  # Show the full report for one run
  sitewatch report show 3e3ae1f2-...

  # Export runs to CSV
  sitewatch report export --format csv --output runs.csv

  # Prune records past the retention policy
  sitewatch report prune`,
}

var reportListFlags struct {
	task    string
	minRate float64
	maxRate float64
	since   string
	limit   int
	format  string
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored run records",
	RunE:  reportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report for one run",
	Args:  cobra.ExactArgs(1),
	RunE:  reportShow,
}

var reportExportFlags struct {
	task   string
	format string
	output string
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run records to JSON or CSV",
	RunE:  reportExport,
}

var reportPruneFlags struct {
	dryRun bool
}

var reportPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete run records past the retention policy",
	RunE:  reportPrune,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd, reportShowCmd, reportExportCmd, reportPruneCmd)

	reportListCmd.Flags().StringVar(&reportListFlags.task, "task", "", "filter by task name")
	reportListCmd.Flags().Float64Var(&reportListFlags.minRate, "min-rate", -1, "minimum compliance rate")
	reportListCmd.Flags().Float64Var(&reportListFlags.maxRate, "max-rate", -1, "maximum compliance rate")
	reportListCmd.Flags().StringVar(&reportListFlags.since, "since", "", "only runs after this RFC3339 time")
	reportListCmd.Flags().IntVar(&reportListFlags.limit, "limit", 20, "maximum records to list")
	reportListCmd.Flags().StringVar(&reportListFlags.format, "format", "text", "output format: text, json")

	reportExportCmd.Flags().StringVar(&reportExportFlags.task, "task", "", "filter by task name")
	reportExportCmd.Flags().StringVar(&reportExportFlags.format, "format", "json", "export format: json, csv")
	reportExportCmd.Flags().StringVar(&reportExportFlags.output, "output", "", "output file (default stdout)")

	reportPruneCmd.Flags().BoolVar(&reportPruneFlags.dryRun, "dry-run", false, "report what would be deleted without deleting")
}

func buildListQuery() (*report.Query, error) {
	query := &report.Query{
		TaskName: reportListFlags.task,
		Limit:    reportListFlags.limit,
	}
	if reportListFlags.minRate >= 0 {
		query.MinComplianceRate = &reportListFlags.minRate
	}
	if reportListFlags.maxRate >= 0 {
		query.MaxComplianceRate = &reportListFlags.maxRate
	}
	if reportListFlags.since != "" {
		since, err := time.Parse(time.RFC3339, reportListFlags.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since value %q: %w", reportListFlags.since, err)
		}
		query.StartTime = &since
	}
	return query, nil
}

func reportList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("report list", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("report list", err)
	}

	format, err := cli.ParseOutputFormat(reportListFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	query, err := buildListQuery()
	if err != nil {
		return cli.NewConfigError("since", err.Error())
	}

	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("report list", err)
	}
	defer store.Close()

	records, err := store.Query(context.Background(), query)
	if err != nil {
		return cli.NewCommandError("report list", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
	}

	table := cli.NewTable("ID", "TASK", "CREATED", "RATE", "GRADE", "DEVIATIONS")
	for _, rec := range records {
		table.AddRow(
			rec.ID,
			rec.TaskName,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.1f%%", rec.ComplianceRate*100),
			rec.Grade,
			fmt.Sprintf("%d", len(rec.Deviations)),
		)
	}
	return table.Render(os.Stdout)
}

func reportShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("report show", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("report show", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("report show", err)
	}
	defer store.Close()

	record, err := store.Get(context.Background(), args[0])
	if err != nil {
		return cli.NewCommandError("report show", err)
	}

	fmt.Println(report.SummaryReport(record))
	return nil
}

func reportExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("report export", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("report export", err)
	}

	var exporter report.Exporter
	switch reportExportFlags.format {
	case "json":
		exporter = export.NewJSONExporter(true)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unknown export format %q (expected json or csv)", reportExportFlags.format))
	}

	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("report export", err)
	}
	defer store.Close()

	records, err := store.Query(context.Background(), &report.Query{TaskName: reportExportFlags.task})
	if err != nil {
		return cli.NewCommandError("report export", err)
	}

	out := os.Stdout
	if reportExportFlags.output != "" {
		f, err := os.Create(reportExportFlags.output)
		if err != nil {
			return cli.NewCommandError("report export", err)
		}
		defer f.Close()
		out = f
	}

	if err := exporter.Export(context.Background(), records, out); err != nil {
		return cli.NewCommandError("report export", err)
	}
	if reportExportFlags.output != "" {
		fmt.Fprintf(os.Stderr, "exported %d records to %s\n", len(records), reportExportFlags.output)
	}
	return nil
}

func reportPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("report prune", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("report prune", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("report prune", err)
	}
	defer store.Close()

	if reportPruneFlags.dryRun {
		cutoff := time.Now().AddDate(0, 0, -cfg.Retention.RetentionDays)
		count, err := store.Count(context.Background(), &report.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("report prune", err)
		}
		fmt.Printf("would delete %d records older than %d days\n", count, cfg.Retention.RetentionDays)
		return nil
	}

	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays:       cfg.Retention.RetentionDays,
		MaxRecords:          cfg.Retention.MaxRecords,
		ArchiveBeforeDelete: cfg.Retention.ArchiveBeforeDelete,
		ArchivePath:         cfg.Retention.ArchivePath,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("report prune", err)
	}
	fmt.Printf("deleted %d records\n", deleted)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sitewatch-hq/sitewatch/pkg/actions"
	"sitewatch-hq/sitewatch/pkg/cli"
	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/sop"
)

var runFlags struct {
	sopPath     string
	actionsPath string
	format      string
	noStore     bool
	threshold   float64
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze an action stream against a procedure",
	Long: `Analyze a recognizer action stream against a Standard Operating
Procedure and report compliance deviations.

The exit code reflects the outcome: 0 for a clean run, 1 when deviations
were detected, 2 when any deviation is high or critical severity.

Examples:
  # Analyze a shift recording
  sitewatch run --sop drywall.yaml --actions shift-042.json

  # Emit the full result as JSON
  sitewatch run --sop drywall.yaml --actions shift-042.json --format json

  # Tighten the matching threshold for this run only
  sitewatch run --sop drywall.yaml --actions shift-042.json --threshold 0.8`,
	RunE: runAnalysis,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.sopPath, "sop", "", "procedure definition file (required)")
	runCmd.Flags().StringVar(&runFlags.actionsPath, "actions", "", "recognizer action stream file (required)")
	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "output format: text, json")
	runCmd.Flags().BoolVar(&runFlags.noStore, "no-store", false, "do not persist the run record")
	runCmd.Flags().Float64Var(&runFlags.threshold, "threshold", 0, "override similarity threshold for this run")

	runCmd.MarkFlagRequired("sop")
	runCmd.MarkFlagRequired("actions")
}

// progressEmbedder wraps an embedder and reports how many texts have been
// embedded so far. The wrapped embedder may be the caching layer, so cache
// hits count as progress too.
type progressEmbedder struct {
	inner    engine.Embedder
	reporter cli.ProgressReporter

	mu   sync.Mutex
	done int
}

func newProgressEmbedder(inner engine.Embedder, reporter cli.ProgressReporter, total int) *progressEmbedder {
	reporter.Start(total)
	return &progressEmbedder{inner: inner, reporter: reporter}
}

func (p *progressEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, err := p.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.done += len(texts)
	p.reporter.Update(p.done)
	p.mu.Unlock()

	return vectors, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	format, err := cli.ParseOutputFormat(runFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	proc, err := sop.Load(runFlags.sopPath)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load procedure: %w", err))
	}

	stream, err := actions.Load(runFlags.actionsPath)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load action stream: %w", err))
	}

	engineCfg, err := cfg.Engine.EngineConfig()
	if err != nil {
		return cli.NewConfigError("engine", err.Error())
	}
	if runFlags.threshold > 0 {
		engineCfg.SimilarityThreshold = runFlags.threshold
		if err := engineCfg.Validate(); err != nil {
			return cli.NewConfigError("threshold", err.Error())
		}
	}

	embedder, _, closeEmbedder, err := buildEmbedder(cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer closeEmbedder()

	// One embedding per step up front, then one per observed action.
	reporter := cli.NewProgressReporter("embedding", nil)
	tracked := newProgressEmbedder(embedder, reporter, len(proc.Steps)+len(stream))

	ctx := cli.SetupSignalHandler()

	eng, err := engine.New(ctx, proc, tracked, engineCfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	started := time.Now()
	result, err := eng.Run(ctx, stream)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	elapsed := time.Since(started)
	reporter.Finish()

	record := report.NewRunRecord(result, report.RecordOptions{
		SOPPath:     runFlags.sopPath,
		ActionsPath: runFlags.actionsPath,
		Provider:    cfg.Provider.Name,
		Model:       cfg.Provider.Model,
		ActionCount: len(stream),
		Duration:    elapsed,
	})

	if !runFlags.noStore {
		store, err := openStorage(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()

		if err := store.Store(ctx, record); err != nil {
			// A failed write must not swallow the analysis outcome.
			logger.Error("failed to store run record", "error", err)
		} else {
			logger.Info("run record stored", "id", record.ID)
		}
	}

	switch format {
	case cli.FormatJSON:
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, record); err != nil {
			return cli.NewCommandError("run", err)
		}
	default:
		for _, alert := range report.Alerts(result) {
			fmt.Println(alert)
			fmt.Println()
		}
		fmt.Println(report.SummaryReport(record))
	}

	if code := cli.ExitCodeFor(result); code != cli.ExitClean {
		return &cli.ExitError{Code: code}
	}
	return nil
}

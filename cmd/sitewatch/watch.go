package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sitewatch-hq/sitewatch/pkg/actions"
	"sitewatch-hq/sitewatch/pkg/cli"
	"sitewatch-hq/sitewatch/pkg/config"
	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/report/retention"
	"sitewatch-hq/sitewatch/pkg/sop"
	"sitewatch-hq/sitewatch/pkg/telemetry/metrics"
)

var watchFlags struct {
	actionsDir string
	sopPath    string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a directory of recognizer output files",
	Long: `Monitor a directory for new or changed recognizer output files and
analyze each one against the configured procedure.

Watch mode runs until interrupted. It re-reads the procedure definition
when it changes, exposes Prometheus metrics when enabled, and applies the
retention policy on its configured schedule.

Examples:
  # Watch with settings from the config file
  sitewatch watch --config /etc/sitewatch/config.yaml

  # Override the watched paths
  sitewatch watch --actions-dir /var/recognizer/out --sop drywall.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.actionsDir, "actions-dir", "", "directory of recognizer output files")
	watchCmd.Flags().StringVar(&watchFlags.sopPath, "sop", "", "procedure definition file")
}

// monitor owns the state shared across analysis runs in watch mode: the
// current procedure, the embedder, storage, and metrics.
type monitor struct {
	cfg       *config.Config
	logger    *slog.Logger
	embedder  engine.Embedder
	engineCfg *engine.Config
	store     report.Storage
	collector *metrics.Collector
	sopPath   string

	mu   sync.Mutex
	proc *sop.Procedure
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	if watchFlags.actionsDir != "" {
		cfg.Watch.ActionsDir = watchFlags.actionsDir
	}
	if watchFlags.sopPath != "" {
		cfg.Watch.SOPPath = watchFlags.sopPath
	}
	if cfg.Watch.ActionsDir == "" {
		return cli.NewConfigError("watch.actions_dir", "actions directory is required")
	}
	if cfg.Watch.SOPPath == "" {
		return cli.NewConfigError("watch.sop_path", "procedure definition is required")
	}

	proc, err := sop.Load(cfg.Watch.SOPPath)
	if err != nil {
		return cli.NewCommandError("watch", fmt.Errorf("failed to load procedure: %w", err))
	}

	engineCfg, err := cfg.Engine.EngineConfig()
	if err != nil {
		return cli.NewConfigError("engine", err.Error())
	}

	collector := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Telemetry.Metrics.Enabled,
		Namespace: cfg.Telemetry.Metrics.Namespace,
	}, nil)

	embedder, provider, closeEmbedder, err := buildEmbedder(cfg, logger, collector)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer closeEmbedder()

	store, err := openStorage(cfg)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer store.Close()

	ctx := cli.SetupSignalHandler()

	// Watch mode is long-lived, so the backend is checked in the
	// background rather than only when an analysis happens to run.
	provider.StartHealthChecker(ctx)

	if cfg.Telemetry.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Telemetry.Metrics.ListenAddress, collector, logger)
	}

	if cfg.Retention.Enabled {
		pruner := retention.NewPruner(store, &retention.Config{
			RetentionDays:       cfg.Retention.RetentionDays,
			PruneSchedule:       cfg.Retention.PruneSchedule,
			MaxRecords:          cfg.Retention.MaxRecords,
			ArchiveBeforeDelete: cfg.Retention.ArchiveBeforeDelete,
			ArchivePath:         cfg.Retention.ArchivePath,
		})
		if err := pruner.Start(ctx); err != nil {
			return cli.NewCommandError("watch", err)
		}
		defer pruner.Stop()
	}

	mon := &monitor{
		cfg:       cfg,
		logger:    logger.With("component", "watch"),
		embedder:  embedder,
		engineCfg: engineCfg,
		store:     store,
		collector: collector,
		sopPath:   cfg.Watch.SOPPath,
		proc:      proc,
	}

	watcher, err := sop.NewWatcher(&sop.WatcherConfig{
		Paths:            []string{cfg.Watch.ActionsDir, cfg.Watch.SOPPath},
		DebounceInterval: cfg.Watch.DebounceInterval,
	}, logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	logger.Info("watch mode started",
		"actions_dir", cfg.Watch.ActionsDir,
		"sop", cfg.Watch.SOPPath,
		"task", proc.TaskName,
	)

	if err := watcher.Watch(ctx, mon.onChange); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// onChange dispatches a changed file: the procedure definition reloads,
// recognizer output files are analyzed.
func (m *monitor) onChange(ctx context.Context, path string) error {
	abs, _ := filepath.Abs(path)
	sopAbs, _ := filepath.Abs(m.sopPath)
	if abs == sopAbs {
		return m.reloadProcedure()
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return m.analyze(ctx, path)
	}
	return nil
}

func (m *monitor) reloadProcedure() error {
	proc, err := sop.Load(m.sopPath)
	if err != nil {
		return fmt.Errorf("procedure reload failed: %w", err)
	}

	m.mu.Lock()
	m.proc = proc
	m.mu.Unlock()

	m.logger.Info("procedure reloaded", "task", proc.TaskName, "steps", len(proc.Steps))
	return nil
}

// analyze runs one stream through the engine under the watch context, so
// an in-flight analysis stops when the monitor is interrupted.
func (m *monitor) analyze(ctx context.Context, path string) error {
	stream, err := actions.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load action stream %s: %w", path, err)
	}

	m.mu.Lock()
	proc := m.proc
	m.mu.Unlock()

	eng, err := engine.New(ctx, proc, m.embedder, m.engineCfg, m.logger)
	if err != nil {
		m.collector.RecordRun(proc.TaskName, "error", 0, nil)
		return err
	}

	started := time.Now()
	result, err := eng.Run(ctx, stream)
	elapsed := time.Since(started)
	if err != nil {
		m.collector.RecordRun(proc.TaskName, "error", elapsed, nil)
		return err
	}

	m.collector.RecordRun(proc.TaskName, "success", elapsed, &result.Summary)
	for _, d := range result.Deviations {
		m.collector.RecordDeviation(d.Kind, d.Severity)
	}

	record := report.NewRunRecord(result, report.RecordOptions{
		SOPPath:     m.sopPath,
		ActionsPath: path,
		Provider:    m.cfg.Provider.Name,
		Model:       m.cfg.Provider.Model,
		ActionCount: len(stream),
		Duration:    elapsed,
	})
	if err := m.store.Store(ctx, record); err != nil {
		m.logger.Error("failed to store run record", "error", err)
	}

	m.logger.Info("stream analyzed",
		"file", path,
		"run_id", record.ID,
		"compliance_rate", result.Summary.ComplianceRate,
		"deviations", len(result.Deviations),
	)
	return nil
}

// startMetricsServer serves /metrics and /healthz until the context is
// cancelled.
func startMetricsServer(ctx context.Context, addr string, collector *metrics.Collector, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}

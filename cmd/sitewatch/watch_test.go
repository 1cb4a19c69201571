package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"sitewatch-hq/sitewatch/pkg/config"
	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/report/storage"
	"sitewatch-hq/sitewatch/pkg/sop"
	"sitewatch-hq/sitewatch/pkg/telemetry/metrics"
)

func testMonitor(t *testing.T) *monitor {
	t.Helper()

	proc, err := sop.Parse([]byte(`
task_name: Drywall Installation
steps:
  - id: 1
    action: Measure and mark the wall
    expected_time: 60
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	store := storage.NewMemoryStorage()
	t.Cleanup(func() { store.Close() })

	return &monitor{
		cfg:       config.DefaultConfig(),
		logger:    slog.Default(),
		embedder:  &stubEmbedder{},
		engineCfg: engine.DefaultConfig(),
		store:     store,
		collector: metrics.NewCollector(&metrics.Config{Enabled: false}, nil),
		sopPath:   "sop.yaml",
		proc:      proc,
	}
}

func writeActionStream(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shift.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write actions file: %v", err)
	}
	return path
}

func TestMonitorAnalyze(t *testing.T) {
	mon := testMonitor(t)
	path := writeActionStream(t, `[{"timestamp": 1, "description": "Measure and mark the wall"}]`)

	if err := mon.analyze(context.Background(), path); err != nil {
		t.Fatalf("analyze() error = %v", err)
	}

	count, err := mon.store.Count(context.Background(), &report.Query{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("stored records = %d, want 1", count)
	}
}

func TestMonitorAnalyzeStopsWithWatchContext(t *testing.T) {
	mon := testMonitor(t)
	path := writeActionStream(t, `[{"timestamp": 1, "description": "Measure and mark the wall"}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mon.analyze(ctx, path)
	if err == nil {
		t.Fatal("analyze() error = nil, want cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("analyze() error = %v, want context.Canceled in chain", err)
	}
}

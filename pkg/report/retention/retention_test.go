package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitewatch-hq/sitewatch/pkg/report"
	"sitewatch-hq/sitewatch/pkg/report/storage"
)

func seedRecords(t *testing.T, store report.Storage, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		rec := &report.RunRecord{
			ID:             "run-" + string(rune('a'+i)),
			TaskName:       "Drywall Installation",
			CreatedAt:      time.Now().Add(-age),
			ComplianceRate: 1,
			Grade:          "A - Excellent",
		}
		if err := store.Store(context.Background(), rec); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func TestPrune_ByAge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRecords(t, store,
		100*24*time.Hour, // past retention
		95*24*time.Hour,  // past retention
		10*24*time.Hour,  // recent
	)

	pruner := NewPruner(store, &Config{RetentionDays: 90})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, err := store.Count(context.Background(), &report.Query{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestPrune_ByCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRecords(t, store,
		5*time.Hour,
		4*time.Hour,
		3*time.Hour,
		2*time.Hour,
		1*time.Hour,
	)

	pruner := NewPruner(store, &Config{MaxRecords: 2})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	// The two newest records survive.
	remaining, err := store.Query(context.Background(), &report.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	for _, rec := range remaining {
		if time.Since(rec.CreatedAt) > 150*time.Minute {
			t.Errorf("old record survived: %s created %v", rec.ID, rec.CreatedAt)
		}
	}
}

func TestPrune_ZeroConfigKeepsEverything(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRecords(t, store, 365*24*time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 0, MaxRecords: 0})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestPrune_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedRecords(t, store, 100*24*time.Hour)

	archiveDir := t.TempDir()
	pruner := NewPruner(store, &Config{
		RetentionDays:       90,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("archive files = %d, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(archiveDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Drywall Installation") {
		t.Errorf("archive does not contain the pruned record: %s", data)
	}
}

func TestNewPruner_NilConfigUsesDefaults(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), nil)
	if pruner.config.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", pruner.config.RetentionDays)
	}
	if pruner.config.PruneSchedule != "0 3 * * *" {
		t.Errorf("PruneSchedule = %q", pruner.config.PruneSchedule)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !pruner.scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if pruner.NextPruning() == nil {
		t.Error("NextPruning() = nil, want a scheduled time")
	}

	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}

func TestScheduler_EmptyScheduleIsNoop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: ""})

	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler running with empty schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "not a cron"})

	if err := pruner.Start(context.Background()); err == nil {
		t.Error("Start() succeeded with invalid cron expression")
		pruner.Stop()
	}
}

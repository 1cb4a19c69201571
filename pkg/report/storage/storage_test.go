package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitewatch-hq/sitewatch/pkg/engine"
	"sitewatch-hq/sitewatch/pkg/report"
)

func testRecord(task string, rate float64, createdAt time.Time) *report.RunRecord {
	score := 0.45
	return &report.RunRecord{
		ID:             uuid.New().String(),
		TaskName:       task,
		CreatedAt:      createdAt,
		Provider:       "local",
		Model:          "nomic-embed-text",
		ActionCount:    4,
		Duration:       2 * time.Second,
		TotalSteps:     4,
		StepsMatched:   3,
		StepsMissing:   []int{4},
		ComplianceRate: rate,
		MeanScore:      0.8,
		Grade:          report.Grade(rate),
		Deviations: []engine.Deviation{
			{
				Kind:     engine.KindUnrecognizedAction,
				Severity: engine.SeverityMedium,
				Action:   &engine.ObservedAction{Timestamp: 12, Description: "x"},
				Score:    &score,
				Message:  "no step matched",
			},
		},
		DeviationCounts: map[engine.Severity]int{engine.SeverityMedium: 1},
	}
}

// storageUnderTest runs the same suite against both backends.
func storageUnderTest(t *testing.T) map[string]report.Storage {
	t.Helper()

	sqlite, err := NewSQLiteStorage(&SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "runs.db"),
		WALMode:     true,
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}

	backends := map[string]report.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			b.Close()
		}
	})
	return backends
}

func TestStorage_StoreAndGet(t *testing.T) {
	for name, s := range storageUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			record := testRecord("Drywall Installation", 0.75, time.Now().UTC())

			if err := s.Store(ctx, record); err != nil {
				t.Fatalf("Store() error = %v", err)
			}

			got, err := s.Get(ctx, record.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.TaskName != record.TaskName || got.ComplianceRate != record.ComplianceRate {
				t.Errorf("Get() = %+v", got)
			}
			if len(got.Deviations) != 1 || got.Deviations[0].Kind != engine.KindUnrecognizedAction {
				t.Errorf("Deviations = %+v", got.Deviations)
			}
			if got.Deviations[0].Score == nil || *got.Deviations[0].Score != 0.45 {
				t.Errorf("deviation score lost in round trip: %v", got.Deviations[0].Score)
			}
			if got.DeviationCounts[engine.SeverityMedium] != 1 {
				t.Errorf("DeviationCounts = %v", got.DeviationCounts)
			}
			if len(got.StepsMissing) != 1 || got.StepsMissing[0] != 4 {
				t.Errorf("StepsMissing = %v", got.StepsMissing)
			}
		})
	}
}

func TestStorage_GetMissing(t *testing.T) {
	for name, s := range storageUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "no-such-id")
			var notFound *report.NotFoundError
			if !errors.As(err, &notFound) {
				t.Errorf("error = %v, want *NotFoundError", err)
			}
		})
	}
}

func TestStorage_QueryFilters(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range storageUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range []*report.RunRecord{
				testRecord("Drywall Installation", 0.5, base),
				testRecord("Drywall Installation", 0.9, base.Add(24*time.Hour)),
				testRecord("Scaffolding Setup", 1.0, base.Add(48*time.Hour)),
			} {
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			byTask, err := s.Query(ctx, &report.Query{TaskName: "Drywall Installation"})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(byTask) != 2 {
				t.Errorf("task filter matched %d, want 2", len(byTask))
			}

			minRate := 0.85
			compliant, err := s.Query(ctx, &report.Query{MinComplianceRate: &minRate})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(compliant) != 2 {
				t.Errorf("rate filter matched %d, want 2", len(compliant))
			}

			cutoff := base.Add(12 * time.Hour)
			recent, err := s.Query(ctx, &report.Query{StartTime: &cutoff})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(recent) != 2 {
				t.Errorf("time filter matched %d, want 2", len(recent))
			}

			count, err := s.Count(ctx, nil)
			if err != nil || count != 3 {
				t.Errorf("Count() = %d, %v; want 3", count, err)
			}
		})
	}
}

func TestStorage_QuerySortAndLimit(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range storageUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, rate := range []float64{0.3, 0.9, 0.6} {
				r := testRecord("T", rate, base.Add(time.Duration(i)*time.Hour))
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			got, err := s.Query(ctx, &report.Query{SortBy: "compliance_rate", SortOrder: "asc"})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != 3 || got[0].ComplianceRate != 0.3 || got[2].ComplianceRate != 0.9 {
				t.Errorf("sort order wrong: %v", rates(got))
			}

			limited, err := s.Query(ctx, &report.Query{Limit: 2})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(limited) != 2 {
				t.Errorf("limit ignored, got %d records", len(limited))
			}
			// Default sort is newest first.
			if limited[0].CreatedAt.Before(limited[1].CreatedAt) {
				t.Error("default sort is not created_at desc")
			}
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range storageUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s.Store(ctx, testRecord("T", 0.5, base))
			s.Store(ctx, testRecord("T", 0.5, base.Add(72*time.Hour)))

			cutoff := base.Add(time.Hour)
			deleted, err := s.Delete(ctx, &report.Query{EndTime: &cutoff})
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if deleted != 1 {
				t.Errorf("deleted = %d, want 1", deleted)
			}

			count, _ := s.Count(ctx, nil)
			if count != 1 {
				t.Errorf("remaining = %d, want 1", count)
			}
		})
	}
}

func rates(records []*report.RunRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.ComplianceRate
	}
	return out
}

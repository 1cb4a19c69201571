package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sitewatch-hq/sitewatch/pkg/report"
)

// MemoryStorage implements report.Storage using an in-memory map. It is
// intended for tests and for runs where persistence is disabled.
type MemoryStorage struct {
	records map[string]*report.RunRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*report.RunRecord),
	}
}

// Store persists a run record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *report.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Get retrieves a single record by id.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*report.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, &report.NotFoundError{ID: id}
	}
	recordCopy := *record
	return &recordCopy, nil
}

// Query retrieves records matching the filters.
func (s *MemoryStorage) Query(ctx context.Context, query *report.Query) ([]*report.RunRecord, error) {
	s.mu.RLock()
	results := []*report.RunRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	sortRecords(results, query)

	if query != nil {
		start := query.Offset
		if start > len(results) {
			return []*report.RunRecord{}, nil
		}
		results = results[start:]
		if query.Limit > 0 && query.Limit < len(results) {
			results = results[:query.Limit]
		}
	}
	return results, nil
}

// Count returns the number of records matching the filters.
func (s *MemoryStorage) Count(ctx context.Context, query *report.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *report.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

func matchesQuery(record *report.RunRecord, query *report.Query) bool {
	if query == nil {
		return true
	}
	if query.StartTime != nil && record.CreatedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.CreatedAt.After(*query.EndTime) {
		return false
	}
	if query.TaskName != "" && record.TaskName != query.TaskName {
		return false
	}
	if query.MinComplianceRate != nil && record.ComplianceRate < *query.MinComplianceRate {
		return false
	}
	if query.MaxComplianceRate != nil && record.ComplianceRate > *query.MaxComplianceRate {
		return false
	}
	return true
}

func sortRecords(records []*report.RunRecord, query *report.Query) {
	sortBy := "created_at"
	asc := false
	if query != nil {
		if query.SortBy != "" {
			sortBy = query.SortBy
		}
		asc = strings.EqualFold(query.SortOrder, "asc")
	}

	sort.SliceStable(records, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "compliance_rate":
			less = records[i].ComplianceRate < records[j].ComplianceRate
		case "task_name":
			less = records[i].TaskName < records[j].TaskName
		default:
			less = records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}

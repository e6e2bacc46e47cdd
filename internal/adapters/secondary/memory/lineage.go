package memory

import (
	"context"
	"sync"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// LineageStore is an append-only in-memory LineageRepository. It consults
// the registry store to decide whether a referencing model version is still
// live.
type LineageStore struct {
	mu       sync.RWMutex
	records  []*domain.LineageRecord
	registry *RegistryStore
}

func NewLineageStore(registry *RegistryStore) *LineageStore {
	return &LineageStore{registry: registry}
}

var _ ports.LineageRepository = (*LineageStore)(nil)

func (s *LineageStore) Record(_ context.Context, rec *domain.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *LineageStore) GetByModelVersion(_ context.Context, group string, version int) (*domain.LineageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Group == group && rec.ModelVersion == version {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrLineageNotFound
}

func (s *LineageStore) LiveReferenceCount(_ context.Context, ref string) (int, error) {
	s.mu.RLock()
	records := make([]*domain.LineageRecord, len(s.records))
	copy(records, s.records)
	s.mu.RUnlock()

	count := 0
	for _, rec := range records {
		if rec.DatasetVersion != ref && rec.BaselineVersion != ref {
			continue
		}
		if !s.registry.versionDeleted(rec.Group, rec.ModelVersion) {
			count++
		}
	}
	return count, nil
}

package services

import (
	"context"
	"time"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// LineageService links model versions to the dataset and baseline versions
// used to produce them, and answers deletion-protection queries.
type LineageService struct {
	repo ports.LineageRepository
}

func NewLineageService(repo ports.LineageRepository) *LineageService {
	return &LineageService{repo: repo}
}

// Record writes the lineage of a freshly registered model version.
// Append-only; called once at registration time.
func (s *LineageService) Record(ctx context.Context, group string, version int, datasetVersion, baselineVersion string) (*domain.LineageRecord, error) {
	if group == "" {
		return nil, domain.ErrInvalidGroupName
	}
	if version < 1 {
		return nil, domain.ErrInvalidVersion
	}
	rec := &domain.LineageRecord{
		Group:           group,
		ModelVersion:    version,
		DatasetVersion:  datasetVersion,
		BaselineVersion: baselineVersion,
		RecordedAt:      time.Now().UTC(),
	}
	if err := s.repo.Record(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CanDelete reports whether a dataset or baseline version may be deleted:
// false while any lineage record referencing it points to a non-deleted
// model version.
func (s *LineageService) CanDelete(ctx context.Context, ref string) (bool, error) {
	count, err := s.repo.LiveReferenceCount(ctx, ref)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// GetLineage returns the dataset/baseline lineage of a model version.
func (s *LineageService) GetLineage(ctx context.Context, group string, version int) (*domain.LineageRecord, error) {
	return s.repo.GetByModelVersion(ctx, group, version)
}

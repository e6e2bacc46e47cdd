package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

type lineageRepo struct {
	pool *pgxpool.Pool
}

func NewLineageRepository(pool *pgxpool.Pool) ports.LineageRepository {
	return &lineageRepo{pool: pool}
}

func (r *lineageRepo) Record(ctx context.Context, rec *domain.LineageRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lineage_record
			(group_name, model_version, dataset_version, baseline_version, recorded_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		rec.Group, rec.ModelVersion, rec.DatasetVersion, rec.BaselineVersion, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lineage record: %w", err)
	}
	return nil
}

func (r *lineageRepo) GetByModelVersion(ctx context.Context, group string, version int) (*domain.LineageRecord, error) {
	rec := &domain.LineageRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT group_name, model_version, dataset_version, baseline_version, recorded_at
		 FROM lineage_record WHERE group_name = $1 AND model_version = $2`,
		group, version,
	).Scan(&rec.Group, &rec.ModelVersion, &rec.DatasetVersion, &rec.BaselineVersion, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLineageNotFound
		}
		return nil, fmt.Errorf("get lineage record: %w", err)
	}
	return rec, nil
}

func (r *lineageRepo) LiveReferenceCount(ctx context.Context, ref string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM lineage_record lr
		 JOIN model_version mv
		   ON mv.group_name = lr.group_name AND mv.version = lr.model_version
		 WHERE (lr.dataset_version = $1 OR lr.baseline_version = $1)
		   AND NOT mv.deleted`,
		ref,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("live reference count: %w", err)
	}
	return count, nil
}

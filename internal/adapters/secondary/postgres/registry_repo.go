package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

type registryRepo struct {
	pool *pgxpool.Pool
}

func NewRegistryRepository(pool *pgxpool.Pool) ports.RegistryRepository {
	return &registryRepo{pool: pool}
}

func (r *registryRepo) MaxVersion(ctx context.Context, group string) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM model_version WHERE group_name = $1`,
		group,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version: %w", err)
	}
	return max, nil
}

func (r *registryRepo) InsertVersion(ctx context.Context, v *domain.ModelVersion) error {
	hyperJSON, err := json.Marshal(v.Metadata.Hyperparameters)
	if err != nil {
		return fmt.Errorf("marshal hyperparameters: %w", err)
	}
	metricsJSON, err := json.Marshal(v.Metadata.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tagsJSON, err := json.Marshal(v.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO model_version
			(group_name, version, algorithm, framework, framework_version,
			 training_job_id, hyperparameters, metrics, dataset_version,
			 created_at, created_by, approval_status, tags, artifact_ref, deleted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,false)
	`
	_, err = r.pool.Exec(ctx, query,
		v.Metadata.Group, v.Metadata.Version, v.Metadata.Algorithm,
		v.Metadata.Framework, v.Metadata.FrameworkVersion, v.Metadata.TrainingJobID,
		hyperJSON, metricsJSON, v.Metadata.DatasetVersion,
		v.Metadata.CreatedAt, v.Metadata.CreatedBy, string(v.Metadata.ApprovalStatus),
		tagsJSON, v.ArtifactRef,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert model version: %w", err)
	}
	return nil
}

func (r *registryRepo) RemoveVersion(ctx context.Context, group string, version int) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM model_version WHERE group_name = $1 AND version = $2`,
		group, version,
	)
	if err != nil {
		return fmt.Errorf("remove model version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

const versionColumns = `
	group_name, version, algorithm, framework, framework_version,
	training_job_id, hyperparameters, metrics, dataset_version,
	created_at, created_by, approval_status, tags, artifact_ref, deleted
`

func (r *registryRepo) GetVersion(ctx context.Context, group string, version int) (*domain.ModelVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM model_version WHERE group_name = $1 AND version = $2`
	v, err := scanVersion(r.pool.QueryRow(ctx, query, group, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get model version: %w", err)
	}
	return v, nil
}

func (r *registryRepo) LatestVersion(ctx context.Context, group string) (*domain.ModelVersion, error) {
	query := `SELECT ` + versionColumns + `
		FROM model_version
		WHERE group_name = $1 AND NOT deleted
		ORDER BY version DESC
		LIMIT 1`
	v, err := scanVersion(r.pool.QueryRow(ctx, query, group))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("latest model version: %w", err)
	}
	return v, nil
}

func (r *registryRepo) ListVersions(ctx context.Context, group string) ([]*domain.ModelVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM model_version WHERE group_name = $1 ORDER BY version ASC`
	rows, err := r.pool.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.ModelVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *registryRepo) GetApproval(ctx context.Context, group string, version int) (*domain.ApprovalRecord, error) {
	rec := &domain.ApprovalRecord{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT group_name, version, status, reviewer, note, decided_at
		 FROM approval_record WHERE group_name = $1 AND version = $2`,
		group, version,
	).Scan(&rec.Group, &rec.Version, &status, &rec.Reviewer, &rec.Note, &rec.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get approval record: %w", err)
	}
	rec.Status = domain.ApprovalStatus(status)
	return rec, nil
}

func (r *registryRepo) CreateApproval(ctx context.Context, rec *domain.ApprovalRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin approval tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO approval_record (group_name, version, status, reviewer, note, decided_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.Group, rec.Version, string(rec.Status), rec.Reviewer, rec.Note, rec.DecidedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert approval record: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE model_version SET approval_status = $1 WHERE group_name = $2 AND version = $3`,
		string(rec.Status), rec.Group, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return tx.Commit(ctx)
}

func (r *registryRepo) ActiveVersion(ctx context.Context, group string) (int, error) {
	var version int
	err := r.pool.QueryRow(ctx,
		`SELECT active_version FROM model_group_active WHERE group_name = $1`,
		group,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("active version: %w", err)
	}
	return version, nil
}

func (r *registryRepo) SetActiveVersion(ctx context.Context, group string, version int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO model_group_active (group_name, active_version)
		 VALUES ($1, $2)
		 ON CONFLICT (group_name) DO UPDATE SET active_version = EXCLUDED.active_version`,
		group, version,
	)
	if err != nil {
		return fmt.Errorf("set active version: %w", err)
	}
	return nil
}

func (r *registryRepo) MarkVersionDeleted(ctx context.Context, group string, version int) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE model_version SET deleted = true WHERE group_name = $1 AND version = $2`,
		group, version,
	)
	if err != nil {
		return fmt.Errorf("mark version deleted: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

func (r *registryRepo) DeleteGroup(ctx context.Context, group string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete group tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM approval_record WHERE group_name = $1`, group); err != nil {
		return fmt.Errorf("delete approval records: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM model_group_active WHERE group_name = $1`, group); err != nil {
		return fmt.Errorf("delete active pointer: %w", err)
	}
	result, err := tx.Exec(ctx, `DELETE FROM model_version WHERE group_name = $1`, group)
	if err != nil {
		return fmt.Errorf("delete model versions: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return tx.Commit(ctx)
}

func scanVersion(row pgx.Row) (*domain.ModelVersion, error) {
	v := &domain.ModelVersion{}
	var (
		status      string
		hyperJSON   []byte
		metricsJSON []byte
		tagsJSON    []byte
	)
	err := row.Scan(
		&v.Metadata.Group, &v.Metadata.Version, &v.Metadata.Algorithm,
		&v.Metadata.Framework, &v.Metadata.FrameworkVersion, &v.Metadata.TrainingJobID,
		&hyperJSON, &metricsJSON, &v.Metadata.DatasetVersion,
		&v.Metadata.CreatedAt, &v.Metadata.CreatedBy, &status,
		&tagsJSON, &v.ArtifactRef, &v.Deleted,
	)
	if err != nil {
		return nil, err
	}
	v.Metadata.ApprovalStatus = domain.ApprovalStatus(status)
	if err := json.Unmarshal(hyperJSON, &v.Metadata.Hyperparameters); err != nil {
		return nil, fmt.Errorf("unmarshal hyperparameters: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &v.Metadata.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &v.Metadata.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return v, nil
}

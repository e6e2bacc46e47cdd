package ports

import (
	"context"

	"mlops-monitoring-service/internal/core/domain"
)

// RegistryRepository is the output port for model version storage. Version
// assignment is optimistic: the service reads MaxVersion, inserts
// max+1, and retries when InsertVersion reports a conflict on the
// (group, version) key.
type RegistryRepository interface {
	// MaxVersion returns the highest version number in the group, 0 when
	// the group has no versions yet.
	MaxVersion(ctx context.Context, group string) (int, error)
	// InsertVersion appends a new version record. Returns
	// domain.ErrVersionConflict when (group, version) already exists.
	InsertVersion(ctx context.Context, v *domain.ModelVersion) error
	// RemoveVersion hard-removes a record. Only used to compensate a failed
	// registration; deletion visible to callers is MarkVersionDeleted.
	RemoveVersion(ctx context.Context, group string, version int) error
	GetVersion(ctx context.Context, group string, version int) (*domain.ModelVersion, error)
	LatestVersion(ctx context.Context, group string) (*domain.ModelVersion, error)
	// ListVersions returns the full history ascending by version, tombstones
	// included.
	ListVersions(ctx context.Context, group string) ([]*domain.ModelVersion, error)

	// GetApproval returns domain.ErrVersionNotFound when no decision has
	// been recorded for the version.
	GetApproval(ctx context.Context, group string, version int) (*domain.ApprovalRecord, error)
	// CreateApproval records the pending->decided transition and flips the
	// version's approval status. Returns domain.ErrVersionConflict when a
	// decision already exists.
	CreateApproval(ctx context.Context, rec *domain.ApprovalRecord) error

	// ActiveVersion returns 0 when no rollback/activation pointer is set.
	ActiveVersion(ctx context.Context, group string) (int, error)
	SetActiveVersion(ctx context.Context, group string, version int) error

	MarkVersionDeleted(ctx context.Context, group string, version int) error
	DeleteGroup(ctx context.Context, group string) error
}

// LineageRepository stores append-only lineage records.
type LineageRepository interface {
	Record(ctx context.Context, rec *domain.LineageRecord) error
	GetByModelVersion(ctx context.Context, group string, version int) (*domain.LineageRecord, error)
	// LiveReferenceCount counts lineage records whose dataset or baseline
	// version equals ref and whose model version is not deleted.
	LiveReferenceCount(ctx context.Context, ref string) (int, error)
}

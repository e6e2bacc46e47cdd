package domain

import "errors"

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrEmptyDataset          = errors.New("dataset has no rows")
	ErrFeatureNotFound       = errors.New("declared feature is absent from the dataset")
	ErrTypeMismatch          = errors.New("feature values are incompatible with the declared type")
	ErrInvalidGroupName      = errors.New("model group name is required")
	ErrInvalidVersion        = errors.New("version must be a positive integer or \"latest\"")
	ErrInvalidDecision       = errors.New("approval decision must be APPROVED or REJECTED")
	ErrInvalidFeatureType    = errors.New("feature type must be NUMERIC or CATEGORICAL")
	ErrMissingDatasetVersion = errors.New("dataset version is required")
)

// ============================================================================
// Computation Errors
// ============================================================================

var (
	ErrComputationFailed = errors.New("drift statistic computation produced a non-finite result")
)

// ============================================================================
// Conflict Errors
// ============================================================================

var (
	ErrVersionConflict      = errors.New("version assignment conflict: retry budget exhausted")
	ErrVersionReferenced    = errors.New("cannot delete: a live model version still references this resource")
	ErrGroupHasLiveVersions = errors.New("cannot delete group: live versions still reference lineage resources")
)

// ============================================================================
// Not Found Errors
// ============================================================================

var (
	ErrGroupNotFound    = errors.New("model group not found")
	ErrVersionNotFound  = errors.New("model version not found")
	ErrBaselineNotFound = errors.New("baseline statistics not found")
	ErrLineageNotFound  = errors.New("lineage record not found")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ============================================================================
// Storage Errors
// ============================================================================

var (
	ErrStorageUnavailable = errors.New("storage operation failed after retries")
)

// ============================================================================
// Business Rule Errors
// ============================================================================

var (
	ErrRollbackNotApproved = errors.New("rollback target version is not approved")
	ErrVersionDeleted      = errors.New("model version has been deleted")
)

package domain

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ModelMetadata describes one registered model version. Versions within a
// group form a strictly increasing integer sequence starting at 1.
type ModelMetadata struct {
	Group            string             `json:"group"`
	Version          int                `json:"version"`
	Algorithm        string             `json:"algorithm"`
	Framework        string             `json:"framework"`
	FrameworkVersion string             `json:"framework_version"`
	TrainingJobID    string             `json:"training_job_id"`
	Hyperparameters  map[string]string  `json:"hyperparameters"`
	Metrics          map[string]float64 `json:"metrics"`
	DatasetVersion   string             `json:"dataset_version"`
	CreatedAt        time.Time          `json:"created_at"`
	CreatedBy        string             `json:"created_by"`
	ApprovalStatus   ApprovalStatus     `json:"approval_status"`
	Tags             map[string]string  `json:"tags"`
}

// ModelVersion is an append-only registry record: metadata plus the opaque
// artifact reference. Deleted versions stay in the history as tombstones so
// lineage remains traceable.
type ModelVersion struct {
	Metadata    ModelMetadata `json:"metadata"`
	ArtifactRef string        `json:"artifact_ref"`
	Deleted     bool          `json:"deleted"`
}

// ApprovalRecord is written exactly once, on the pending->decided
// transition. Re-deciding an already-decided version returns this record
// unchanged.
type ApprovalRecord struct {
	Group     string         `json:"group"`
	Version   int            `json:"version"`
	Status    ApprovalStatus `json:"status"`
	Reviewer  string         `json:"reviewer"`
	Note      string         `json:"note"`
	DecidedAt time.Time      `json:"decided_at"`
}

// MetricDiff is one row of a side-by-side comparison. MissingIn is "a" or
// "b" when only one version carries the key, empty when both do.
type MetricDiff struct {
	Key       string   `json:"key"`
	ValueA    *float64 `json:"value_a,omitempty"`
	ValueB    *float64 `json:"value_b,omitempty"`
	Diff      *float64 `json:"diff,omitempty"`
	MissingIn string   `json:"missing_in,omitempty"`
}

type ModelComparison struct {
	Group    string       `json:"group"`
	VersionA int          `json:"version_a"`
	VersionB int          `json:"version_b"`
	Metrics  []MetricDiff `json:"metrics"`
}

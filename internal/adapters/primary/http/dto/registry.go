package dto

import (
	"time"

	"mlops-monitoring-service/internal/core/domain"
)

type RegisterVersionRequest struct {
	Algorithm        string             `json:"algorithm"`
	Framework        string             `json:"framework"`
	FrameworkVersion string             `json:"framework_version"`
	Hyperparameters  map[string]string  `json:"hyperparameters"`
	Metrics          map[string]float64 `json:"metrics"`
	DatasetVersion   string             `json:"dataset_version" binding:"required"`
	BaselineVersion  string             `json:"baseline_version"`
	CreatedBy        string             `json:"created_by"`
	Tags             map[string]string  `json:"tags"`
	ArtifactRef      string             `json:"artifact_ref"`
}

type ApprovalRequest struct {
	Decision domain.ApprovalStatus `json:"decision" binding:"required"`
	Reviewer string                `json:"reviewer"`
	Note     string                `json:"note"`
}

type RollbackRequest struct {
	TargetVersion int `json:"target_version" binding:"required"`
}

type ModelVersionResponse struct {
	Group            string                `json:"group"`
	Version          int                   `json:"version"`
	Algorithm        string                `json:"algorithm"`
	Framework        string                `json:"framework"`
	FrameworkVersion string                `json:"framework_version"`
	TrainingJobID    string                `json:"training_job_id"`
	Hyperparameters  map[string]string     `json:"hyperparameters"`
	Metrics          map[string]float64    `json:"metrics"`
	DatasetVersion   string                `json:"dataset_version"`
	CreatedAt        time.Time             `json:"created_at"`
	CreatedBy        string                `json:"created_by"`
	ApprovalStatus   domain.ApprovalStatus `json:"approval_status"`
	Tags             map[string]string     `json:"tags"`
	ArtifactRef      string                `json:"artifact_ref"`
	Deleted          bool                  `json:"deleted"`
}

func ToModelVersionResponse(v *domain.ModelVersion) ModelVersionResponse {
	return ModelVersionResponse{
		Group:            v.Metadata.Group,
		Version:          v.Metadata.Version,
		Algorithm:        v.Metadata.Algorithm,
		Framework:        v.Metadata.Framework,
		FrameworkVersion: v.Metadata.FrameworkVersion,
		TrainingJobID:    v.Metadata.TrainingJobID,
		Hyperparameters:  v.Metadata.Hyperparameters,
		Metrics:          v.Metadata.Metrics,
		DatasetVersion:   v.Metadata.DatasetVersion,
		CreatedAt:        v.Metadata.CreatedAt,
		CreatedBy:        v.Metadata.CreatedBy,
		ApprovalStatus:   v.Metadata.ApprovalStatus,
		Tags:             v.Metadata.Tags,
		ArtifactRef:      v.ArtifactRef,
		Deleted:          v.Deleted,
	}
}

type ListVersionsResponse struct {
	Items []ModelVersionResponse `json:"items"`
	Total int                    `json:"total"`
}

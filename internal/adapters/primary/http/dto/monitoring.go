package dto

import (
	"mlops-monitoring-service/internal/core/domain"
)

// DatasetPayload is the inline tabular snapshot accepted by the baseline
// and drift endpoints.
type DatasetPayload struct {
	Columns []string            `json:"columns" binding:"required"`
	Values  map[string][]string `json:"values" binding:"required"`
}

func (p DatasetPayload) ToDataset() *domain.Dataset {
	return domain.NewDataset(p.Columns, p.Values)
}

type BuildBaselineRequest struct {
	DatasetVersion string                        `json:"dataset_version" binding:"required"`
	FeatureTypes   map[string]domain.FeatureType `json:"feature_types" binding:"required"`
	Dataset        DatasetPayload                `json:"dataset" binding:"required"`
}

type DetectDriftRequest struct {
	// BaselineVersion selects a stored baseline; Baseline carries one
	// inline. Exactly one must be set.
	BaselineVersion string                     `json:"baseline_version"`
	Baseline        *domain.BaselineStatistics `json:"baseline"`
	Dataset         DatasetPayload             `json:"dataset" binding:"required"`
}

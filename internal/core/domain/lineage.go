package domain

import "time"

// LineageRecord links a model version to the dataset and baseline versions
// used to produce it. Append-only; written once at registration time.
type LineageRecord struct {
	Group           string    `json:"group"`
	ModelVersion    int       `json:"model_version"`
	DatasetVersion  string    `json:"dataset_version"`
	BaselineVersion string    `json:"baseline_version"`
	RecordedAt      time.Time `json:"recorded_at"`
}

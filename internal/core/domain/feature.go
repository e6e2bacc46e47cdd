package domain

import "time"

type FeatureType string

const (
	FeatureTypeNumeric     FeatureType = "NUMERIC"
	FeatureTypeCategorical FeatureType = "CATEGORICAL"
)

// Histogram holds fixed-width bucket edges and counts for a numeric feature.
// Edges has exactly len(Counts)+1 entries and is strictly ascending, except
// for the degenerate single-value case which stores one bucket with equal
// edges.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int64   `json:"counts"`
}

// FeatureStats is the per-feature statistical summary captured at baseline
// time. Immutable once computed.
type FeatureStats struct {
	Name         string      `json:"name"`
	Type         FeatureType `json:"type"`
	Mean         float64     `json:"mean"`
	Std          float64     `json:"std"`
	Min          float64     `json:"min"`
	Max          float64     `json:"max"`
	MissingCount int64       `json:"missing_count"`
	UniqueCount  int64       `json:"unique_count"`
	SampleCount  int64       `json:"sample_count"`

	// Histogram is set for numeric features, Frequencies for categorical.
	Histogram   *Histogram       `json:"histogram,omitempty"`
	Frequencies map[string]int64 `json:"frequencies,omitempty"`
}

// MissingRate returns the fraction of missing values in [0, 1].
func (s FeatureStats) MissingRate() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.MissingCount) / float64(s.SampleCount)
}

// BaselineStatistics is the reference summary of a training dataset.
// Created once per training run and never mutated; drift comparisons hold a
// reference to it.
type BaselineStatistics struct {
	DatasetVersion string                  `json:"dataset_version"`
	CreatedAt      time.Time               `json:"created_at"`
	RowCount       int64                   `json:"row_count"`
	Features       map[string]FeatureStats `json:"features"`
}

package domain

import "time"

type AnomalyKind string

const (
	AnomalyMissingSpike      AnomalyKind = "MISSING_SPIKE"
	AnomalyOutlier           AnomalyKind = "OUTLIER"
	AnomalyDistributionShift AnomalyKind = "DISTRIBUTION_SHIFT"
	AnomalySchemaViolation   AnomalyKind = "SCHEMA_VIOLATION"
)

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

type Anomaly struct {
	FeatureName string      `json:"feature_name"`
	Kind        AnomalyKind `json:"kind"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Magnitude   float64     `json:"magnitude"`
}

// StatisticsComparison is the per-feature detail of a drift comparison.
// Statistic is the raw PSI or chi-square value; Normalized divides it by
// the feature's drift boundary so 1.0 marks the threshold for both kinds.
type StatisticsComparison struct {
	FeatureName         string   `json:"feature_name"`
	BaselineMean        *float64 `json:"baseline_mean,omitempty"`
	CurrentMean         *float64 `json:"current_mean,omitempty"`
	BaselineStd         *float64 `json:"baseline_std,omitempty"`
	CurrentStd          *float64 `json:"current_std,omitempty"`
	BaselineMissingRate float64  `json:"baseline_missing_rate"`
	CurrentMissingRate  float64  `json:"current_missing_rate"`
	Statistic           float64  `json:"statistic"`
	Normalized          float64  `json:"normalized"`
	Drifted             bool     `json:"drifted"`
}

// DriftReport is produced once per inference batch and never mutated after
// creation.
type DriftReport struct {
	Timestamp         time.Time                       `json:"timestamp"`
	BaselineVersion   string                          `json:"baseline_version"`
	DriftScore        float64                         `json:"drift_score"`
	FeaturesWithDrift []string                        `json:"features_with_drift"`
	Anomalies         []Anomaly                       `json:"anomalies"`
	Comparisons       map[string]StatisticsComparison `json:"comparisons"`
	SampleCount       int                             `json:"sample_count"`
	LowConfidence     bool                            `json:"low_confidence"`
	Incomplete        bool                            `json:"incomplete"`
}

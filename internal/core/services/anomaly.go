package services

import (
	"fmt"

	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
)

// AnomalyScanner classifies data-quality issues found for one feature
// during a drift comparison. Pure and stateless; invoked per feature.
type AnomalyScanner struct {
	missingDeltaPP    float64
	outlierProportion float64
	outlierStdFactor  float64
}

func NewAnomalyScanner(cfg config.DriftConfig) *AnomalyScanner {
	return &AnomalyScanner{
		missingDeltaPP:    cfg.MissingDeltaPP,
		outlierProportion: cfg.OutlierProportion,
		outlierStdFactor:  cfg.OutlierStdFactor,
	}
}

// Scan returns zero or more anomalies for the feature. lowConfidence caps
// every severity at low.
func (s *AnomalyScanner) Scan(base domain.FeatureStats, cur currentProfile, comp domain.StatisticsComparison, lowConfidence bool) []domain.Anomaly {
	var anomalies []domain.Anomaly

	if a, ok := s.missingSpike(base, cur); ok {
		anomalies = append(anomalies, a)
	}
	if base.Type == domain.FeatureTypeNumeric {
		if a, ok := s.outliers(base, cur); ok {
			anomalies = append(anomalies, a)
		}
	}
	if comp.Drifted {
		anomalies = append(anomalies, domain.Anomaly{
			FeatureName: base.Name,
			Kind:        domain.AnomalyDistributionShift,
			Severity:    shiftSeverity(comp.Normalized),
			Description: fmt.Sprintf("drift statistic %.4f is %.2fx the threshold", comp.Statistic, comp.Normalized),
			Magnitude:   comp.Normalized,
		})
	}
	anomalies = append(anomalies, s.schemaViolations(base, cur)...)

	if lowConfidence {
		for i := range anomalies {
			anomalies[i].Severity = domain.SeverityLow
		}
	}
	return anomalies
}

func (s *AnomalyScanner) missingSpike(base domain.FeatureStats, cur currentProfile) (domain.Anomaly, bool) {
	deltaPP := (cur.missingRate() - base.MissingRate()) * 100
	if deltaPP <= s.missingDeltaPP {
		return domain.Anomaly{}, false
	}

	severity := domain.SeverityLow
	switch {
	case deltaPP > 30:
		severity = domain.SeverityHigh
	case deltaPP >= 10:
		severity = domain.SeverityMedium
	}
	return domain.Anomaly{
		FeatureName: base.Name,
		Kind:        domain.AnomalyMissingSpike,
		Severity:    severity,
		Description: fmt.Sprintf("missing rate rose from %.1f%% to %.1f%%", base.MissingRate()*100, cur.missingRate()*100),
		Magnitude:   deltaPP,
	}, true
}

func (s *AnomalyScanner) outliers(base domain.FeatureStats, cur currentProfile) (domain.Anomaly, bool) {
	if len(cur.values) == 0 {
		return domain.Anomaly{}, false
	}
	lower := base.Min - s.outlierStdFactor*base.Std
	upper := base.Max + s.outlierStdFactor*base.Std

	var outside int
	for _, v := range cur.values {
		if v < lower || v > upper {
			outside++
		}
	}
	proportion := float64(outside) / float64(len(cur.values))
	if proportion <= s.outlierProportion {
		return domain.Anomaly{}, false
	}

	severity := domain.SeverityLow
	switch {
	case proportion > 0.15:
		severity = domain.SeverityHigh
	case proportion >= 0.05:
		severity = domain.SeverityMedium
	}
	return domain.Anomaly{
		FeatureName: base.Name,
		Kind:        domain.AnomalyOutlier,
		Severity:    severity,
		Description: fmt.Sprintf("%.1f%% of values fall outside [%.4g, %.4g]", proportion*100, lower, upper),
		Magnitude:   proportion,
	}, true
}

func (s *AnomalyScanner) schemaViolations(base domain.FeatureStats, cur currentProfile) []domain.Anomaly {
	var anomalies []domain.Anomaly

	if cur.typeMismatch {
		anomalies = append(anomalies, domain.Anomaly{
			FeatureName: base.Name,
			Kind:        domain.AnomalySchemaViolation,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("%d of %d non-missing values disagree with declared type %s", cur.unparseable, cur.nonMissing(), base.Type),
			Magnitude:   float64(cur.unparseable),
		})
	}
	if len(cur.novelCategories) > 0 {
		anomalies = append(anomalies, domain.Anomaly{
			FeatureName: base.Name,
			Kind:        domain.AnomalySchemaViolation,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("%d categories unseen in baseline: %v", len(cur.novelCategories), cur.novelCategories),
			Magnitude:   float64(len(cur.novelCategories)),
		})
	}
	return anomalies
}

func shiftSeverity(normalized float64) domain.Severity {
	switch {
	case normalized > 3:
		return domain.SeverityHigh
	case normalized > 1.5:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

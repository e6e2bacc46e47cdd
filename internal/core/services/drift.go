package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// proportionFloor guards PSI against log(0) and division by zero.
const proportionFloor = 1e-4

// DriftDetector compares a current batch against baseline statistics.
// Stateless and safe for concurrent use; per-feature computations fan out
// over a bounded worker pool.
type DriftDetector struct {
	scanner   *AnomalyScanner
	artifacts ports.ArtifactStore
	sink      ports.MetricsSink
	cfg       config.DriftConfig
	retries   int
	backoff   time.Duration
}

func NewDriftDetector(scanner *AnomalyScanner, artifacts ports.ArtifactStore, sink ports.MetricsSink, drift config.DriftConfig, storage config.StorageConfig) *DriftDetector {
	if drift.Workers < 1 {
		drift.Workers = 1
	}
	return &DriftDetector{
		scanner:   scanner,
		artifacts: artifacts,
		sink:      sink,
		cfg:       drift,
		retries:   storage.MaxRetries,
		backoff:   storage.RetryBackoff,
	}
}

// currentProfile is the parsed view of one batch column, shared between the
// detector and the anomaly scanner.
type currentProfile struct {
	sampleCount     int
	missing         int
	unparseable     int
	typeMismatch    bool
	values          []float64        // numeric features
	frequencies     map[string]int64 // categorical features
	novelCategories []string
}

func (p currentProfile) missingRate() float64 {
	if p.sampleCount == 0 {
		return 0
	}
	return float64(p.missing) / float64(p.sampleCount)
}

func (p currentProfile) nonMissing() int {
	return p.sampleCount - p.missing
}

func (p currentProfile) validCount() int {
	if p.frequencies != nil {
		n := 0
		for _, c := range p.frequencies {
			n += int(c)
		}
		return n
	}
	return len(p.values)
}

type featureResult struct {
	comparison domain.StatisticsComparison
	anomalies  []domain.Anomaly
}

// Detect produces one DriftReport. It degrades instead of failing: small
// batches yield a low-confidence report, an exhausted compute budget yields
// a report marked incomplete, and only unrecoverable numeric failure
// returns an error.
func (d *DriftDetector) Detect(ctx context.Context, ds *domain.Dataset, baseline *domain.BaselineStatistics) (*domain.DriftReport, error) {
	if ds == nil || ds.Rows() == 0 {
		return nil, domain.ErrEmptyDataset
	}
	if d.cfg.ComputeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ComputeBudget)
		defer cancel()
	}

	lowConfidence := ds.Rows() < d.cfg.MinSampleSize
	names := sortedKeys(baseline.Features)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]featureResult, len(names))
		compErr error
	)
	sem := make(chan struct{}, d.cfg.Workers)

	incomplete := false
	for _, name := range names {
		if ctx.Err() != nil {
			incomplete = true
			break
		}
		col, ok := ds.Column(name)
		if !ok {
			// Feature vanished from the batch entirely.
			mu.Lock()
			results[name] = featureResult{
				comparison: domain.StatisticsComparison{FeatureName: name},
				anomalies: []domain.Anomaly{{
					FeatureName: name,
					Kind:        domain.AnomalySchemaViolation,
					Severity:    capSeverity(domain.SeverityHigh, lowConfidence),
					Description: "feature missing from the current batch",
					Magnitude:   1,
				}},
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(name string, col []string) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			res, err := d.compareFeature(name, baseline.Features[name], col, lowConfidence)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if compErr == nil {
					compErr = err
				}
				return
			}
			results[name] = res
		}(name, col)
	}
	wg.Wait()

	if compErr != nil {
		return nil, compErr
	}
	if len(results) < len(names) {
		incomplete = true
	}

	report := d.assemble(baseline, results, ds.Rows(), lowConfidence, incomplete)

	if err := d.persist(ctx, report); err != nil {
		return nil, err
	}
	d.publish(report)

	log.WithFields(log.Fields{
		"baseline_version":    report.BaselineVersion,
		"drift_score":         report.DriftScore,
		"features_with_drift": len(report.FeaturesWithDrift),
		"anomalies":           len(report.Anomalies),
		"low_confidence":      report.LowConfidence,
		"incomplete":          report.Incomplete,
	}).Info("drift report produced")

	return report, nil
}

func (d *DriftDetector) compareFeature(name string, base domain.FeatureStats, col []string, lowConfidence bool) (featureResult, error) {
	cur := parseColumn(base, col, d.cfg.NumericTolerance)

	comp := domain.StatisticsComparison{
		FeatureName:         name,
		BaselineMissingRate: base.MissingRate(),
		CurrentMissingRate:  cur.missingRate(),
	}
	if base.Type == domain.FeatureTypeNumeric {
		bm, bs := base.Mean, base.Std
		comp.BaselineMean, comp.BaselineStd = &bm, &bs
		if len(cur.values) > 0 {
			mean, std, _, _ := summarize(cur.values)
			comp.CurrentMean, comp.CurrentStd = &mean, &std
		}
	}

	// A feature with zero valid samples is reported purely as a
	// 100%-missing-spike anomaly; no statistic is computed over nothing.
	if cur.validCount() == 0 {
		return featureResult{
			comparison: comp,
			anomalies: []domain.Anomaly{{
				FeatureName: name,
				Kind:        domain.AnomalyMissingSpike,
				Severity:    capSeverity(domain.SeverityHigh, lowConfidence),
				Description: "all values in the current batch are missing or unparseable",
				Magnitude:   100,
			}},
		}, nil
	}

	var (
		statistic  float64
		normalized float64
	)
	switch base.Type {
	case domain.FeatureTypeNumeric:
		statistic = psi(base.Histogram, cur.values)
		normalized = statistic / d.cfg.PSIThreshold
	case domain.FeatureTypeCategorical:
		statistic, normalized = d.chiSquare(base, cur)
	}
	if math.IsNaN(statistic) || math.IsInf(statistic, 0) {
		return featureResult{}, fmt.Errorf("feature %s: %w", name, domain.ErrComputationFailed)
	}

	comp.Statistic = statistic
	comp.Normalized = normalized
	comp.Drifted = normalized > 1 && !lowConfidence

	return featureResult{
		comparison: comp,
		anomalies:  d.scanner.Scan(base, cur, comp, lowConfidence),
	}, nil
}

func parseColumn(base domain.FeatureStats, col []string, tolerance float64) currentProfile {
	cur := currentProfile{sampleCount: len(col)}

	switch base.Type {
	case domain.FeatureTypeNumeric:
		for _, raw := range col {
			if domain.IsMissingValue(raw) {
				cur.missing++
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				cur.unparseable++
				continue
			}
			cur.values = append(cur.values, v)
		}
		nonMissing := cur.nonMissing()
		cur.typeMismatch = nonMissing > 0 && float64(cur.unparseable) > tolerance*float64(nonMissing)
		cur.missing += cur.unparseable

	case domain.FeatureTypeCategorical:
		cur.frequencies = make(map[string]int64)
		for _, raw := range col {
			if domain.IsMissingValue(raw) {
				cur.missing++
				continue
			}
			cur.frequencies[raw]++
		}
		for cat := range cur.frequencies {
			if _, ok := base.Frequencies[cat]; !ok {
				cur.novelCategories = append(cur.novelCategories, cat)
			}
		}
		sort.Strings(cur.novelCategories)
	}
	return cur
}

// psi computes the Population Stability Index of the current values over
// the baseline bucket edges. Both proportions are floored before the
// logarithm.
func psi(hist *domain.Histogram, values []float64) float64 {
	if hist == nil || len(hist.Counts) == 0 || len(values) == 0 {
		return 0
	}

	var baseTotal int64
	for _, c := range hist.Counts {
		baseTotal += c
	}
	if baseTotal == 0 {
		return 0
	}

	curCounts := make([]int64, len(hist.Counts))
	for _, v := range values {
		curCounts[bucketIndex(hist.Edges, v)]++
	}

	var sum float64
	for i := range hist.Counts {
		baseProp := math.Max(float64(hist.Counts[i])/float64(baseTotal), proportionFloor)
		curProp := math.Max(float64(curCounts[i])/float64(len(values)), proportionFloor)
		sum += (curProp - baseProp) * math.Log(curProp/baseProp)
	}
	return sum
}

// chiSquare runs a goodness-of-fit test of the current category frequencies
// against the baseline ones. Baseline categories absent from the batch get
// a zero observed count; novel categories are surfaced by the scanner as
// schema anomalies and excluded from the test.
func (d *DriftDetector) chiSquare(base domain.FeatureStats, cur currentProfile) (statistic, normalized float64) {
	if len(base.Frequencies) < 2 {
		return 0, 0
	}

	var baseTotal int64
	for _, c := range base.Frequencies {
		baseTotal += c
	}
	if baseTotal == 0 {
		return 0, 0
	}

	curTotal := float64(cur.validCount())
	var chi2 float64
	for cat, baseCount := range base.Frequencies {
		expected := float64(baseCount) / float64(baseTotal) * curTotal
		if expected < proportionFloor {
			expected = proportionFloor
		}
		observed := float64(cur.frequencies[cat])
		diff := observed - expected
		chi2 += diff * diff / expected
	}

	df := len(base.Frequencies) - 1
	critical := chiSquareCritical(df, d.cfg.Significance)
	if critical <= 0 {
		return chi2, 0
	}
	return chi2, chi2 / critical
}

func (d *DriftDetector) assemble(baseline *domain.BaselineStatistics, results map[string]featureResult, rows int, lowConfidence, incomplete bool) *domain.DriftReport {
	report := &domain.DriftReport{
		Timestamp:         time.Now().UTC(),
		BaselineVersion:   baseline.DatasetVersion,
		FeaturesWithDrift: []string{},
		Anomalies:         []domain.Anomaly{},
		Comparisons:       make(map[string]domain.StatisticsComparison, len(results)),
		SampleCount:       rows,
		LowConfidence:     lowConfidence,
		Incomplete:        incomplete,
	}

	type drifted struct {
		name       string
		normalized float64
	}
	var flagged []drifted

	for _, name := range sortedKeys(results) {
		res := results[name]
		report.Comparisons[name] = res.comparison
		report.Anomalies = append(report.Anomalies, res.anomalies...)
		if res.comparison.Normalized > report.DriftScore {
			// Worst-feature policy: one severely shifted feature cannot be
			// diluted by many stable ones.
			report.DriftScore = res.comparison.Normalized
		}
		if res.comparison.Drifted {
			flagged = append(flagged, drifted{name, res.comparison.Normalized})
		}
	}

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].normalized != flagged[j].normalized {
			return flagged[i].normalized > flagged[j].normalized
		}
		return flagged[i].name < flagged[j].name
	})
	for _, f := range flagged {
		report.FeaturesWithDrift = append(report.FeaturesWithDrift, f.name)
	}
	return report
}

func (d *DriftDetector) persist(ctx context.Context, report *domain.DriftReport) error {
	if d.artifacts == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal drift report: %w", err)
	}
	key := fmt.Sprintf("reports/%s/%s.json", report.BaselineVersion, report.Timestamp.Format(time.RFC3339Nano))
	return withBackoff(ctx, d.retries, d.backoff, func() error {
		return d.artifacts.Put(ctx, key, data)
	})
}

func (d *DriftDetector) publish(report *domain.DriftReport) {
	if d.sink == nil {
		return
	}
	tags := map[string]string{"baseline_version": report.BaselineVersion}
	d.sink.Publish("drift_score", report.DriftScore, report.Timestamp, tags)
	d.sink.Publish("features_with_drift", float64(len(report.FeaturesWithDrift)), report.Timestamp, tags)
	d.sink.Publish("anomaly_count", float64(len(report.Anomalies)), report.Timestamp, tags)
	for name, comp := range report.Comparisons {
		d.sink.Publish("feature_drift_statistic", comp.Statistic, report.Timestamp, map[string]string{
			"baseline_version": report.BaselineVersion,
			"feature":          name,
		})
	}
}

func capSeverity(sev domain.Severity, lowConfidence bool) domain.Severity {
	if lowConfidence {
		return domain.SeverityLow
	}
	return sev
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

const histogramBuckets = 10

// BaselineBuilder computes reference statistics from a training dataset
// snapshot and persists them through the artifact store.
type BaselineBuilder struct {
	artifacts ports.ArtifactStore
	lineage   *LineageService
	tolerance float64
	retries   int
	backoff   time.Duration
}

func NewBaselineBuilder(artifacts ports.ArtifactStore, lineage *LineageService, drift config.DriftConfig, storage config.StorageConfig) *BaselineBuilder {
	return &BaselineBuilder{
		artifacts: artifacts,
		lineage:   lineage,
		tolerance: drift.NumericTolerance,
		retries:   storage.MaxRetries,
		backoff:   storage.RetryBackoff,
	}
}

func baselineKey(version string) string {
	return fmt.Sprintf("baselines/%s.json", version)
}

// Build computes one FeatureStats per declared feature. Identical input
// always yields identical statistics apart from the creation timestamp.
func (b *BaselineBuilder) Build(ctx context.Context, ds *domain.Dataset, featureTypes map[string]domain.FeatureType, datasetVersion string) (*domain.BaselineStatistics, error) {
	if datasetVersion == "" {
		return nil, domain.ErrMissingDatasetVersion
	}
	if ds == nil || ds.Rows() == 0 {
		return nil, domain.ErrEmptyDataset
	}

	features := make(map[string]domain.FeatureStats, len(featureTypes))
	for _, name := range sortedKeys(featureTypes) {
		ftype := featureTypes[name]
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrFeatureNotFound)
		}

		var (
			stats domain.FeatureStats
			err   error
		)
		switch ftype {
		case domain.FeatureTypeNumeric:
			stats, err = b.numericStats(name, col)
		case domain.FeatureTypeCategorical:
			stats = categoricalStats(name, col)
		default:
			err = fmt.Errorf("%s: %w", name, domain.ErrInvalidFeatureType)
		}
		if err != nil {
			return nil, err
		}
		features[name] = stats
	}

	baseline := &domain.BaselineStatistics{
		DatasetVersion: datasetVersion,
		CreatedAt:      time.Now().UTC(),
		RowCount:       int64(ds.Rows()),
		Features:       features,
	}

	if b.artifacts != nil {
		data, err := json.Marshal(baseline)
		if err != nil {
			return nil, fmt.Errorf("marshal baseline: %w", err)
		}
		key := baselineKey(datasetVersion)
		err = withBackoff(ctx, b.retries, b.backoff, func() error {
			return b.artifacts.Put(ctx, key, data)
		})
		if err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"dataset_version": datasetVersion,
		"features":        len(features),
		"rows":            ds.Rows(),
	}).Info("baseline statistics built")

	return baseline, nil
}

// Load fetches a previously persisted baseline.
func (b *BaselineBuilder) Load(ctx context.Context, version string) (*domain.BaselineStatistics, error) {
	data, err := b.artifacts.Get(ctx, baselineKey(version))
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return nil, domain.ErrBaselineNotFound
		}
		return nil, err
	}
	var baseline domain.BaselineStatistics
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("unmarshal baseline %s: %w", version, err)
	}
	return &baseline, nil
}

// Delete removes a stored baseline. Rejected while a live model version
// still references the baseline through lineage.
func (b *BaselineBuilder) Delete(ctx context.Context, version string) error {
	if b.lineage != nil {
		ok, err := b.lineage.CanDelete(ctx, version)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("baseline %s: %w", version, domain.ErrVersionReferenced)
		}
	}
	return b.artifacts.Delete(ctx, baselineKey(version))
}

func (b *BaselineBuilder) numericStats(name string, col []string) (domain.FeatureStats, error) {
	var (
		values      []float64
		missing     int64
		unparseable int64
	)
	for _, raw := range col {
		if domain.IsMissingValue(raw) {
			missing++
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			unparseable++
			continue
		}
		values = append(values, v)
	}

	nonMissing := int64(len(values)) + unparseable
	if nonMissing > 0 && float64(unparseable) > b.tolerance*float64(nonMissing) {
		return domain.FeatureStats{}, fmt.Errorf("%s: %d of %d values not numeric: %w",
			name, unparseable, nonMissing, domain.ErrTypeMismatch)
	}
	// Within tolerance, unparseable values count as missing.
	missing += unparseable

	stats := domain.FeatureStats{
		Name:         name,
		Type:         domain.FeatureTypeNumeric,
		MissingCount: missing,
		SampleCount:  int64(len(col)),
	}
	if len(values) == 0 {
		return stats, nil
	}

	mean, std, min, max := summarize(values)
	stats.Mean = mean
	stats.Std = std
	stats.Min = min
	stats.Max = max
	stats.UniqueCount = countUnique(values)
	stats.Histogram = buildHistogram(values, min, max)
	return stats, nil
}

func categoricalStats(name string, col []string) domain.FeatureStats {
	freq := make(map[string]int64)
	var missing int64
	for _, raw := range col {
		if domain.IsMissingValue(raw) {
			missing++
			continue
		}
		freq[raw]++
	}
	return domain.FeatureStats{
		Name:         name,
		Type:         domain.FeatureTypeCategorical,
		MissingCount: missing,
		UniqueCount:  int64(len(freq)),
		SampleCount:  int64(len(col)),
		Frequencies:  freq,
	}
}

// summarize returns mean, population standard deviation, min and max.
func summarize(values []float64) (mean, std, min, max float64) {
	min, max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)))
	return mean, std, min, max
}

func countUnique(values []float64) int64 {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return int64(len(seen))
}

// buildHistogram bins values into fixed-width buckets over [min, max]. A
// degenerate column (min == max) collapses to a single bucket.
func buildHistogram(values []float64, min, max float64) *domain.Histogram {
	if min == max {
		return &domain.Histogram{
			Edges:  []float64{min, max},
			Counts: []int64{int64(len(values))},
		}
	}

	width := (max - min) / histogramBuckets
	edges := make([]float64, histogramBuckets+1)
	for i := 0; i <= histogramBuckets; i++ {
		edges[i] = min + float64(i)*width
	}
	edges[histogramBuckets] = max

	counts := make([]int64, histogramBuckets)
	for _, v := range values {
		counts[bucketIndex(edges, v)]++
	}
	return &domain.Histogram{Edges: edges, Counts: counts}
}

// bucketIndex places v into a left-inclusive bucket; values at or beyond
// the outer edges land in the first or last bucket.
func bucketIndex(edges []float64, v float64) int {
	n := len(edges) - 1
	if v <= edges[0] {
		return 0
	}
	if v >= edges[n] {
		return n - 1
	}
	// Smallest i with edges[i] >= v.
	i := sort.SearchFloat64s(edges, v)
	if edges[i] == v {
		return i
	}
	return i - 1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

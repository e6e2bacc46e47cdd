package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// RegistryService manages versioned model metadata. Version assignment is
// optimistic: read the group's max version, insert max+1, retry on
// conflict up to a bounded attempt count.
type RegistryService struct {
	repo        ports.RegistryRepository
	lineage     *LineageService
	artifacts   ports.ArtifactStore
	sink        ports.MetricsSink
	maxAttempts int
}

func NewRegistryService(repo ports.RegistryRepository, lineage *LineageService, artifacts ports.ArtifactStore, sink ports.MetricsSink, cfg config.RegistryConfig) *RegistryService {
	attempts := cfg.RegisterMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &RegistryService{
		repo:        repo,
		lineage:     lineage,
		artifacts:   artifacts,
		sink:        sink,
		maxAttempts: attempts,
	}
}

// RegisterInput carries everything a training execution hands over when
// registering a new model version.
type RegisterInput struct {
	Algorithm        string
	Framework        string
	FrameworkVersion string
	Hyperparameters  map[string]string
	Metrics          map[string]float64
	DatasetVersion   string
	BaselineVersion  string
	CreatedBy        string
	Tags             map[string]string
	ArtifactRef      string
}

// Register appends a new version to the group, creating the group
// implicitly on first use. Metadata and lineage are written together; a
// failed lineage write rolls the registration back so no partial state
// stays visible.
func (s *RegistryService) Register(ctx context.Context, group string, in RegisterInput) (*domain.ModelVersion, error) {
	if strings.TrimSpace(group) == "" {
		return nil, domain.ErrInvalidGroupName
	}
	if in.DatasetVersion == "" {
		return nil, domain.ErrMissingDatasetVersion
	}
	if in.Hyperparameters == nil {
		in.Hyperparameters = make(map[string]string)
	}
	if in.Metrics == nil {
		in.Metrics = make(map[string]float64)
	}
	if in.Tags == nil {
		in.Tags = make(map[string]string)
	}
	if in.CreatedBy == "" {
		in.CreatedBy = "system"
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		max, err := s.repo.MaxVersion(ctx, group)
		if err != nil {
			return nil, err
		}
		candidate := max + 1

		v := &domain.ModelVersion{
			Metadata: domain.ModelMetadata{
				Group:            group,
				Version:          candidate,
				Algorithm:        in.Algorithm,
				Framework:        in.Framework,
				FrameworkVersion: in.FrameworkVersion,
				TrainingJobID:    fmt.Sprintf("job-%s", uuid.NewString()[:8]),
				Hyperparameters:  in.Hyperparameters,
				Metrics:          in.Metrics,
				DatasetVersion:   in.DatasetVersion,
				CreatedAt:        time.Now().UTC(),
				CreatedBy:        in.CreatedBy,
				ApprovalStatus:   domain.ApprovalPending,
				Tags:             in.Tags,
			},
			ArtifactRef: in.ArtifactRef,
		}

		if err := s.repo.InsertVersion(ctx, v); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				log.WithFields(log.Fields{
					"group":   group,
					"version": candidate,
					"attempt": attempt + 1,
				}).Debug("version assignment conflict, retrying")
				continue
			}
			return nil, err
		}

		if _, err := s.lineage.Record(ctx, group, candidate, in.DatasetVersion, in.BaselineVersion); err != nil {
			// Registration is all-or-nothing: take the version record back
			// out before surfacing the failure.
			if rmErr := s.repo.RemoveVersion(ctx, group, candidate); rmErr != nil {
				log.WithError(rmErr).WithFields(log.Fields{
					"group":   group,
					"version": candidate,
				}).Error("failed to roll back registration after lineage write failure")
			}
			return nil, err
		}

		if s.sink != nil {
			s.sink.Publish("model_registered", 1, v.Metadata.CreatedAt, map[string]string{"group": group})
		}
		log.WithFields(log.Fields{
			"group":   group,
			"version": candidate,
		}).Info("model version registered")
		return v, nil
	}

	return nil, fmt.Errorf("group %s: %w", group, domain.ErrVersionConflict)
}

// Get resolves a version spec, where "latest" means the highest version
// number regardless of approval status.
func (s *RegistryService) Get(ctx context.Context, group, versionSpec string) (*domain.ModelVersion, error) {
	if versionSpec == "latest" {
		return s.repo.LatestVersion(ctx, group)
	}
	version, err := strconv.Atoi(versionSpec)
	if err != nil || version < 1 {
		return nil, domain.ErrInvalidVersion
	}
	return s.getLive(ctx, group, version)
}

func (s *RegistryService) getLive(ctx context.Context, group string, version int) (*domain.ModelVersion, error) {
	v, err := s.repo.GetVersion(ctx, group, version)
	if err != nil {
		return nil, err
	}
	if v.Deleted {
		return nil, domain.ErrVersionNotFound
	}
	return v, nil
}

// List returns the full history of a group, ascending by version,
// tombstones included.
func (s *RegistryService) List(ctx context.Context, group string) ([]*domain.ModelVersion, error) {
	versions, err := s.repo.ListVersions(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.ErrGroupNotFound
	}
	return versions, nil
}

// Approve records a pending->approved or pending->rejected transition.
// Idempotent: re-invoking on an already-decided version returns the stored
// decision unchanged, reviewer and timestamp included.
func (s *RegistryService) Approve(ctx context.Context, group string, version int, decision domain.ApprovalStatus, reviewer, note string) (*domain.ApprovalRecord, error) {
	if decision != domain.ApprovalApproved && decision != domain.ApprovalRejected {
		return nil, domain.ErrInvalidDecision
	}
	if _, err := s.getLive(ctx, group, version); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetApproval(ctx, group, version); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrVersionNotFound) {
		return nil, err
	}

	rec := &domain.ApprovalRecord{
		Group:     group,
		Version:   version,
		Status:    decision,
		Reviewer:  reviewer,
		Note:      note,
		DecidedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateApproval(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			// Lost a decision race; the first write wins.
			return s.repo.GetApproval(ctx, group, version)
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"group":    group,
		"version":  version,
		"decision": decision,
		"reviewer": reviewer,
	}).Info("model version decided")
	return rec, nil
}

// Compare returns a side-by-side diff of every metric key present in either
// version, with explicit markers for keys one side lacks.
func (s *RegistryService) Compare(ctx context.Context, group string, versionA, versionB int) (*domain.ModelComparison, error) {
	va, err := s.getLive(ctx, group, versionA)
	if err != nil {
		return nil, err
	}
	vb, err := s.getLive(ctx, group, versionB)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(va.Metadata.Metrics)+len(vb.Metadata.Metrics))
	for k := range va.Metadata.Metrics {
		keys[k] = struct{}{}
	}
	for k := range vb.Metadata.Metrics {
		keys[k] = struct{}{}
	}

	cmp := &domain.ModelComparison{
		Group:    group,
		VersionA: versionA,
		VersionB: versionB,
		Metrics:  make([]domain.MetricDiff, 0, len(keys)),
	}
	for _, key := range sortedKeys(keys) {
		diff := domain.MetricDiff{Key: key}
		a, okA := va.Metadata.Metrics[key]
		b, okB := vb.Metadata.Metrics[key]
		switch {
		case okA && okB:
			d := b - a
			diff.ValueA, diff.ValueB, diff.Diff = &a, &b, &d
		case okA:
			diff.ValueA, diff.MissingIn = &a, "b"
		default:
			diff.ValueB, diff.MissingIn = &b, "a"
		}
		cmp.Metrics = append(cmp.Metrics, diff)
	}
	return cmp, nil
}

// Rollback moves the group's active-version pointer to an approved target.
// No retraining happens and no new version record is created.
func (s *RegistryService) Rollback(ctx context.Context, group string, target int) error {
	v, err := s.getLive(ctx, group, target)
	if err != nil {
		return err
	}
	if v.Metadata.ApprovalStatus != domain.ApprovalApproved {
		return fmt.Errorf("%s v%d: %w", group, target, domain.ErrRollbackNotApproved)
	}
	if err := s.repo.SetActiveVersion(ctx, group, target); err != nil {
		return err
	}
	log.WithFields(log.Fields{"group": group, "version": target}).Info("active version rolled back")
	return nil
}

// Active returns the version the group's active pointer currently targets.
func (s *RegistryService) Active(ctx context.Context, group string) (*domain.ModelVersion, error) {
	version, err := s.repo.ActiveVersion(ctx, group)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, domain.ErrVersionNotFound
	}
	return s.getLive(ctx, group, version)
}

// DeleteVersion tombstones a version so lineage history stays traceable,
// and removes the stored artifact.
func (s *RegistryService) DeleteVersion(ctx context.Context, group string, version int) error {
	v, err := s.getLive(ctx, group, version)
	if err != nil {
		return err
	}
	if err := s.repo.MarkVersionDeleted(ctx, group, version); err != nil {
		return err
	}
	if s.artifacts != nil && v.ArtifactRef != "" {
		if err := s.artifacts.Delete(ctx, v.ArtifactRef); err != nil && !errors.Is(err, domain.ErrArtifactNotFound) {
			log.WithError(err).WithFields(log.Fields{
				"group":   group,
				"version": version,
			}).Warn("artifact cleanup failed after version delete")
		}
	}
	log.WithFields(log.Fields{"group": group, "version": version}).Info("model version deleted")
	return nil
}

// DeleteGroup removes a group and its history. Rejected while the group
// still has live versions.
func (s *RegistryService) DeleteGroup(ctx context.Context, group string) error {
	versions, err := s.List(ctx, group)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if !v.Deleted {
			return fmt.Errorf("group %s: %w", group, domain.ErrGroupHasLiveVersions)
		}
	}
	if err := s.repo.DeleteGroup(ctx, group); err != nil {
		return err
	}
	log.WithField("group", group).Info("model group deleted")
	return nil
}

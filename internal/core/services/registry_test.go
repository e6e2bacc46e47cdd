package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mlops-monitoring-service/internal/adapters/secondary/memory"
	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/testutil"
)

func newMemoryRegistry() (*RegistryService, *LineageService, *memory.RegistryStore) {
	store := memory.NewRegistryStore()
	lineage := NewLineageService(memory.NewLineageStore(store))
	svc := NewRegistryService(store, lineage, memory.NewArtifactStore(), nil, config.RegistryConfig{RegisterMaxAttempts: 5})
	return svc, lineage, store
}

func registerOne(t *testing.T, svc *RegistryService, group string) *domain.ModelVersion {
	t.Helper()
	v, err := svc.Register(context.Background(), group, RegisterInput{
		Algorithm:      "xgboost",
		DatasetVersion: "ds-v1",
		Metrics:        map[string]float64{"auc": 0.91},
	})
	require.NoError(t, err)
	return v
}

func TestRegistryService_RegisterAssignsSequentialVersions(t *testing.T) {
	svc, lineage, _ := newMemoryRegistry()

	for want := 1; want <= 3; want++ {
		v := registerOne(t, svc, "churn")
		assert.Equal(t, want, v.Metadata.Version)
		assert.Equal(t, domain.ApprovalPending, v.Metadata.ApprovalStatus)
		assert.NotEmpty(t, v.Metadata.TrainingJobID)
	}

	rec, err := lineage.GetLineage(context.Background(), "churn", 2)
	require.NoError(t, err)
	assert.Equal(t, "ds-v1", rec.DatasetVersion)
}

func TestRegistryService_RegisterValidation(t *testing.T) {
	svc, _, _ := newMemoryRegistry()

	_, err := svc.Register(context.Background(), "  ", RegisterInput{DatasetVersion: "ds-v1"})
	assert.ErrorIs(t, err, domain.ErrInvalidGroupName)

	_, err = svc.Register(context.Background(), "churn", RegisterInput{})
	assert.ErrorIs(t, err, domain.ErrMissingDatasetVersion)
}

func TestRegistryService_RegisterRetriesOnConflict(t *testing.T) {
	repo := new(testutil.MockRegistryRepo)
	lineageRepo := new(testutil.MockLineageRepo)
	svc := NewRegistryService(repo, NewLineageService(lineageRepo), nil, nil, config.RegistryConfig{RegisterMaxAttempts: 5})

	// Another writer grabs version 3 first; the second attempt lands on 4.
	repo.On("MaxVersion", mock.Anything, "churn").Return(2, nil).Once()
	repo.On("MaxVersion", mock.Anything, "churn").Return(3, nil).Once()
	repo.On("InsertVersion", mock.Anything, mock.MatchedBy(func(v *domain.ModelVersion) bool {
		return v.Metadata.Version == 3
	})).Return(domain.ErrVersionConflict).Once()
	repo.On("InsertVersion", mock.Anything, mock.MatchedBy(func(v *domain.ModelVersion) bool {
		return v.Metadata.Version == 4
	})).Return(nil).Once()
	lineageRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

	v, err := svc.Register(context.Background(), "churn", RegisterInput{DatasetVersion: "ds-v1"})
	require.NoError(t, err)
	assert.Equal(t, 4, v.Metadata.Version)
	repo.AssertExpectations(t)
	lineageRepo.AssertExpectations(t)
}

func TestRegistryService_RegisterExhaustedRetriesConflicts(t *testing.T) {
	repo := new(testutil.MockRegistryRepo)
	lineageRepo := new(testutil.MockLineageRepo)
	svc := NewRegistryService(repo, NewLineageService(lineageRepo), nil, nil, config.RegistryConfig{RegisterMaxAttempts: 3})

	repo.On("MaxVersion", mock.Anything, "churn").Return(1, nil).Times(3)
	repo.On("InsertVersion", mock.Anything, mock.Anything).Return(domain.ErrVersionConflict).Times(3)

	_, err := svc.Register(context.Background(), "churn", RegisterInput{DatasetVersion: "ds-v1"})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	repo.AssertExpectations(t)
}

func TestRegistryService_RegisterRollsBackOnLineageFailure(t *testing.T) {
	repo := new(testutil.MockRegistryRepo)
	lineageRepo := new(testutil.MockLineageRepo)
	svc := NewRegistryService(repo, NewLineageService(lineageRepo), nil, nil, config.RegistryConfig{RegisterMaxAttempts: 3})

	repo.On("MaxVersion", mock.Anything, "churn").Return(0, nil).Once()
	repo.On("InsertVersion", mock.Anything, mock.Anything).Return(nil).Once()
	lineageRepo.On("Record", mock.Anything, mock.Anything).Return(errors.New("lineage store down")).Once()
	repo.On("RemoveVersion", mock.Anything, "churn", 1).Return(nil).Once()

	_, err := svc.Register(context.Background(), "churn", RegisterInput{DatasetVersion: "ds-v1"})
	require.Error(t, err)
	repo.AssertExpectations(t)
	lineageRepo.AssertExpectations(t)
}

func TestRegistryService_GetResolvesLatestAndExplicit(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	registerOne(t, svc, "churn")
	registerOne(t, svc, "churn")

	latest, err := svc.Get(context.Background(), "churn", "latest")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Metadata.Version)

	first, err := svc.Get(context.Background(), "churn", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Metadata.Version)

	_, err = svc.Get(context.Background(), "churn", "0")
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
	_, err = svc.Get(context.Background(), "churn", "two")
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
	_, err = svc.Get(context.Background(), "churn", "9")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestRegistryService_ApproveIsIdempotent(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	registerOne(t, svc, "churn")

	first, err := svc.Approve(context.Background(), "churn", 1, domain.ApprovalApproved, "alice", "ship it")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, first.Status)
	assert.Equal(t, "alice", first.Reviewer)

	// A conflicting later decision is a strict no-op: the stored record
	// comes back unchanged.
	second, err := svc.Approve(context.Background(), "churn", 1, domain.ApprovalRejected, "bob", "late veto")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, second.Status)
	assert.Equal(t, "alice", second.Reviewer)
	assert.Equal(t, first.DecidedAt, second.DecidedAt)

	v, err := svc.Get(context.Background(), "churn", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, v.Metadata.ApprovalStatus)
}

func TestRegistryService_ApproveValidation(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	registerOne(t, svc, "churn")

	_, err := svc.Approve(context.Background(), "churn", 1, domain.ApprovalPending, "alice", "")
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)

	_, err = svc.Approve(context.Background(), "churn", 9, domain.ApprovalApproved, "alice", "")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestRegistryService_ApproveDecisionRaceReturnsWinner(t *testing.T) {
	repo := new(testutil.MockRegistryRepo)
	svc := NewRegistryService(repo, nil, nil, nil, config.RegistryConfig{RegisterMaxAttempts: 1})

	live := &domain.ModelVersion{Metadata: domain.ModelMetadata{Group: "churn", Version: 1}}
	winner := &domain.ApprovalRecord{Group: "churn", Version: 1, Status: domain.ApprovalRejected, Reviewer: "bob"}

	repo.On("GetVersion", mock.Anything, "churn", 1).Return(live, nil).Once()
	repo.On("GetApproval", mock.Anything, "churn", 1).Return(nil, domain.ErrVersionNotFound).Once()
	repo.On("CreateApproval", mock.Anything, mock.Anything).Return(domain.ErrVersionConflict).Once()
	repo.On("GetApproval", mock.Anything, "churn", 1).Return(winner, nil).Once()

	rec, err := svc.Approve(context.Background(), "churn", 1, domain.ApprovalApproved, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.Reviewer)
	assert.Equal(t, domain.ApprovalRejected, rec.Status)
	repo.AssertExpectations(t)
}

func TestRegistryService_CompareDiffsMetricUnion(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	_, err := svc.Register(context.Background(), "churn", RegisterInput{
		DatasetVersion: "ds-v1",
		Metrics:        map[string]float64{"auc": 0.90, "f1": 0.70},
	})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "churn", RegisterInput{
		DatasetVersion: "ds-v2",
		Metrics:        map[string]float64{"auc": 0.93, "recall": 0.80},
	})
	require.NoError(t, err)

	cmp, err := svc.Compare(context.Background(), "churn", 1, 2)
	require.NoError(t, err)
	require.Len(t, cmp.Metrics, 3)

	byKey := map[string]domain.MetricDiff{}
	for _, d := range cmp.Metrics {
		byKey[d.Key] = d
	}

	auc := byKey["auc"]
	require.NotNil(t, auc.Diff)
	assert.InDelta(t, 0.03, *auc.Diff, 1e-9)
	assert.Empty(t, auc.MissingIn)

	f1 := byKey["f1"]
	assert.Nil(t, f1.Diff)
	assert.Equal(t, "b", f1.MissingIn)

	recall := byKey["recall"]
	assert.Nil(t, recall.Diff)
	assert.Equal(t, "a", recall.MissingIn)
}

func TestRegistryService_RollbackRequiresApproval(t *testing.T) {
	svc, _, store := newMemoryRegistry()
	registerOne(t, svc, "churn")
	registerOne(t, svc, "churn")

	err := svc.Rollback(context.Background(), "churn", 1)
	assert.ErrorIs(t, err, domain.ErrRollbackNotApproved)

	_, err = svc.Approve(context.Background(), "churn", 1, domain.ApprovalApproved, "alice", "")
	require.NoError(t, err)
	require.NoError(t, svc.Rollback(context.Background(), "churn", 1))

	active, err := svc.Active(context.Background(), "churn")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Metadata.Version)

	// Rollback moves the pointer only; history length is unchanged.
	versions, err := store.ListVersions(context.Background(), "churn")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestRegistryService_DeleteVersionTombstones(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	registerOne(t, svc, "churn")
	registerOne(t, svc, "churn")

	require.NoError(t, svc.DeleteVersion(context.Background(), "churn", 2))

	_, err := svc.Get(context.Background(), "churn", "2")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)

	latest, err := svc.Get(context.Background(), "churn", "latest")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Metadata.Version)

	// Tombstone stays visible in the full history.
	versions, err := svc.List(context.Background(), "churn")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[1].Deleted)

	err = svc.DeleteVersion(context.Background(), "churn", 2)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestRegistryService_DeleteGroupGuardedByLiveVersions(t *testing.T) {
	svc, _, _ := newMemoryRegistry()
	registerOne(t, svc, "churn")
	registerOne(t, svc, "churn")

	err := svc.DeleteGroup(context.Background(), "churn")
	assert.ErrorIs(t, err, domain.ErrGroupHasLiveVersions)

	require.NoError(t, svc.DeleteVersion(context.Background(), "churn", 1))
	require.NoError(t, svc.DeleteVersion(context.Background(), "churn", 2))
	require.NoError(t, svc.DeleteGroup(context.Background(), "churn"))

	_, err = svc.List(context.Background(), "churn")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

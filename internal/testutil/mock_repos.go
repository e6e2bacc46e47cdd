package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"mlops-monitoring-service/internal/core/domain"
)

// MockRegistryRepo is a mock of RegistryRepository.
type MockRegistryRepo struct {
	mock.Mock
}

func (m *MockRegistryRepo) MaxVersion(ctx context.Context, group string) (int, error) {
	args := m.Called(ctx, group)
	return args.Int(0), args.Error(1)
}

func (m *MockRegistryRepo) InsertVersion(ctx context.Context, v *domain.ModelVersion) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockRegistryRepo) RemoveVersion(ctx context.Context, group string, version int) error {
	args := m.Called(ctx, group, version)
	return args.Error(0)
}

func (m *MockRegistryRepo) GetVersion(ctx context.Context, group string, version int) (*domain.ModelVersion, error) {
	args := m.Called(ctx, group, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryRepo) LatestVersion(ctx context.Context, group string) (*domain.ModelVersion, error) {
	args := m.Called(ctx, group)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryRepo) ListVersions(ctx context.Context, group string) ([]*domain.ModelVersion, error) {
	args := m.Called(ctx, group)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryRepo) GetApproval(ctx context.Context, group string, version int) (*domain.ApprovalRecord, error) {
	args := m.Called(ctx, group, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalRecord), args.Error(1)
}

func (m *MockRegistryRepo) CreateApproval(ctx context.Context, rec *domain.ApprovalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRegistryRepo) ActiveVersion(ctx context.Context, group string) (int, error) {
	args := m.Called(ctx, group)
	return args.Int(0), args.Error(1)
}

func (m *MockRegistryRepo) SetActiveVersion(ctx context.Context, group string, version int) error {
	args := m.Called(ctx, group, version)
	return args.Error(0)
}

func (m *MockRegistryRepo) MarkVersionDeleted(ctx context.Context, group string, version int) error {
	args := m.Called(ctx, group, version)
	return args.Error(0)
}

func (m *MockRegistryRepo) DeleteGroup(ctx context.Context, group string) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

// MockLineageRepo is a mock of LineageRepository.
type MockLineageRepo struct {
	mock.Mock
}

func (m *MockLineageRepo) Record(ctx context.Context, rec *domain.LineageRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockLineageRepo) GetByModelVersion(ctx context.Context, group string, version int) (*domain.LineageRecord, error) {
	args := m.Called(ctx, group, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LineageRecord), args.Error(1)
}

func (m *MockLineageRepo) LiveReferenceCount(ctx context.Context, ref string) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArtifactStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockMetricsSink records published samples for assertions.
type MockMetricsSink struct {
	mock.Mock
}

func (m *MockMetricsSink) Publish(name string, value float64, ts time.Time, tags map[string]string) {
	m.Called(name, value, ts, tags)
}

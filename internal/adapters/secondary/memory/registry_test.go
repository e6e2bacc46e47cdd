package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/services"
)

func TestRegistryStore_InsertConflictOnDuplicateVersion(t *testing.T) {
	store := NewRegistryStore()
	v := &domain.ModelVersion{Metadata: domain.ModelMetadata{Group: "g", Version: 1}}

	require.NoError(t, store.InsertVersion(context.Background(), v))
	err := store.InsertVersion(context.Background(), v)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestRegistryStore_ReturnsCopies(t *testing.T) {
	store := NewRegistryStore()
	require.NoError(t, store.InsertVersion(context.Background(), &domain.ModelVersion{
		Metadata: domain.ModelMetadata{Group: "g", Version: 1, Algorithm: "xgboost"},
	}))

	got, err := store.GetVersion(context.Background(), "g", 1)
	require.NoError(t, err)
	got.Metadata.Algorithm = "mutated"

	again, err := store.GetVersion(context.Background(), "g", 1)
	require.NoError(t, err)
	assert.Equal(t, "xgboost", again.Metadata.Algorithm)
}

// Concurrent registrations through the real service must never skip or
// duplicate a version number: the store's conflict on (group, version)
// plus the service's retry loop yields a contiguous 1..N sequence.
func TestRegistryStore_ConcurrentRegistrationsAreContiguous(t *testing.T) {
	const writers = 16

	store := NewRegistryStore()
	lineage := services.NewLineageService(NewLineageStore(store))
	svc := services.NewRegistryService(store, lineage, nil, nil, config.RegistryConfig{RegisterMaxAttempts: writers * 2})

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "g", services.RegisterInput{DatasetVersion: "ds-v1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	versions, err := store.ListVersions(context.Background(), "g")
	require.NoError(t, err)
	require.Len(t, versions, writers)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Metadata.Version)
	}
}

func TestLineageStore_LiveReferenceCount(t *testing.T) {
	store := NewRegistryStore()
	lineage := NewLineageStore(store)
	ctx := context.Background()

	require.NoError(t, store.InsertVersion(ctx, &domain.ModelVersion{
		Metadata: domain.ModelMetadata{Group: "g", Version: 1},
	}))
	require.NoError(t, store.InsertVersion(ctx, &domain.ModelVersion{
		Metadata: domain.ModelMetadata{Group: "g", Version: 2},
	}))
	require.NoError(t, lineage.Record(ctx, &domain.LineageRecord{
		Group: "g", ModelVersion: 1, DatasetVersion: "ds-v1", BaselineVersion: "bl-v1",
	}))
	require.NoError(t, lineage.Record(ctx, &domain.LineageRecord{
		Group: "g", ModelVersion: 2, DatasetVersion: "ds-v1", BaselineVersion: "bl-v2",
	}))

	n, err := lineage.LiveReferenceCount(ctx, "ds-v1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.MarkVersionDeleted(ctx, "g", 1))

	n, err = lineage.LiveReferenceCount(ctx, "ds-v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = lineage.LiveReferenceCount(ctx, "bl-v1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestArtifactStore_RoundTripAndDelete(t *testing.T) {
	store := NewArtifactStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("payload")))
	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

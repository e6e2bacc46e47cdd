package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlops-monitoring-service/internal/core/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "baselines/ds-v1.json", []byte(`{"a":1}`)))

	data, err := store.Get(ctx, "baselines/ds-v1.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)

	// Overwrite replaces the blob in place.
	require.NoError(t, store.Put(ctx, "baselines/ds-v1.json", []byte(`{"a":2}`)))
	data, err = store.Get(ctx, "baselines/ds-v1.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), data)

	require.NoError(t, store.Delete(ctx, "baselines/ds-v1.json"))
	_, err = store.Get(ctx, "baselines/ds-v1.json")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	err = store.Delete(ctx, "baselines/ds-v1.json")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestStore_RejectsTraversalKeys(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../outside", "a/../../outside", "/etc/passwd", "."} {
		assert.Error(t, store.Put(ctx, key, []byte("x")), "key %q", key)
		_, err := store.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
	}

	entries, err := os.ReadDir(filepath.Dir(root))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "outside", e.Name())
	}
}

func TestStore_PutLeavesNoPartialFiles(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "reports/r1.json", []byte("ok")))

	var tmps []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".tmp" {
			tmps = append(tmps, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

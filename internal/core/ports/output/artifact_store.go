package ports

import "context"

// ArtifactStore is the output port for opaque blob storage: baseline
// statistics, drift reports, and model artifacts, keyed by path-like
// strings.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	// Get returns domain.ErrArtifactNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

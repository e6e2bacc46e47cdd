package memory

import (
	"context"
	"sync"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// ArtifactStore keeps blobs in a map. Local mode and tests only.
type ArtifactStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{blobs: make(map[string][]byte)}
}

var _ ports.ArtifactStore = (*ArtifactStore)(nil)

func (s *ArtifactStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *ArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *ArtifactStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return domain.ErrArtifactNotFound
	}
	delete(s.blobs, key)
	return nil
}

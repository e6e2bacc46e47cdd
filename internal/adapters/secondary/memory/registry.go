package memory

import (
	"context"
	"sync"

	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/ports/output"
)

// RegistryStore is an in-memory RegistryRepository used for local mode and
// tests. It preserves the optimistic-concurrency contract: MaxVersion and
// InsertVersion lock independently, so concurrent registrations race on the
// (group, version) key exactly as they do against the unique constraint in
// postgres.
type RegistryStore struct {
	mu     sync.RWMutex
	groups map[string]*groupState
}

type groupState struct {
	versions  map[int]*domain.ModelVersion
	approvals map[int]*domain.ApprovalRecord
	active    int
}

func NewRegistryStore() *RegistryStore {
	return &RegistryStore{groups: make(map[string]*groupState)}
}

var _ ports.RegistryRepository = (*RegistryStore)(nil)

func (s *RegistryStore) group(name string) *groupState {
	g, ok := s.groups[name]
	if !ok {
		g = &groupState{
			versions:  make(map[int]*domain.ModelVersion),
			approvals: make(map[int]*domain.ApprovalRecord),
		}
		s.groups[name] = g
	}
	return g
}

func (s *RegistryStore) MaxVersion(_ context.Context, group string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return 0, nil
	}
	max := 0
	for v := range g.versions {
		if v > max {
			max = v
		}
	}
	return max, nil
}

func (s *RegistryStore) InsertVersion(_ context.Context, v *domain.ModelVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.group(v.Metadata.Group)
	if _, exists := g.versions[v.Metadata.Version]; exists {
		return domain.ErrVersionConflict
	}
	cp := *v
	g.versions[v.Metadata.Version] = &cp
	return nil
}

func (s *RegistryStore) RemoveVersion(_ context.Context, group string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if _, exists := g.versions[version]; !exists {
		return domain.ErrVersionNotFound
	}
	delete(g.versions, version)
	delete(g.approvals, version)
	return nil
}

func (s *RegistryStore) GetVersion(_ context.Context, group string, version int) (*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	v, ok := g.versions[version]
	if !ok {
		return nil, domain.ErrVersionNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *RegistryStore) LatestVersion(_ context.Context, group string) (*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok || len(g.versions) == 0 {
		return nil, domain.ErrGroupNotFound
	}
	var latest *domain.ModelVersion
	for _, v := range g.versions {
		if v.Deleted {
			continue
		}
		if latest == nil || v.Metadata.Version > latest.Metadata.Version {
			latest = v
		}
	}
	if latest == nil {
		return nil, domain.ErrVersionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *RegistryStore) ListVersions(_ context.Context, group string) ([]*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return nil, nil
	}
	max := 0
	for n := range g.versions {
		if n > max {
			max = n
		}
	}
	out := make([]*domain.ModelVersion, 0, len(g.versions))
	for n := 1; n <= max; n++ {
		if v, ok := g.versions[n]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *RegistryStore) GetApproval(_ context.Context, group string, version int) (*domain.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return nil, domain.ErrVersionNotFound
	}
	rec, ok := g.approvals[version]
	if !ok {
		return nil, domain.ErrVersionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *RegistryStore) CreateApproval(_ context.Context, rec *domain.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[rec.Group]
	if !ok {
		return domain.ErrGroupNotFound
	}
	v, ok := g.versions[rec.Version]
	if !ok {
		return domain.ErrVersionNotFound
	}
	if _, exists := g.approvals[rec.Version]; exists {
		return domain.ErrVersionConflict
	}
	cp := *rec
	g.approvals[rec.Version] = &cp
	v.Metadata.ApprovalStatus = rec.Status
	return nil
}

func (s *RegistryStore) ActiveVersion(_ context.Context, group string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return 0, domain.ErrGroupNotFound
	}
	return g.active, nil
}

func (s *RegistryStore) SetActiveVersion(_ context.Context, group string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if _, exists := g.versions[version]; !exists {
		return domain.ErrVersionNotFound
	}
	g.active = version
	return nil
}

func (s *RegistryStore) MarkVersionDeleted(_ context.Context, group string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok {
		return domain.ErrGroupNotFound
	}
	v, ok := g.versions[version]
	if !ok {
		return domain.ErrVersionNotFound
	}
	v.Deleted = true
	return nil
}

func (s *RegistryStore) DeleteGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group]; !ok {
		return domain.ErrGroupNotFound
	}
	delete(s.groups, group)
	return nil
}

// versionDeleted is used by the lineage store to decide whether a lineage
// reference is still live.
func (s *RegistryStore) versionDeleted(group string, version int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return true
	}
	v, ok := g.versions[version]
	if !ok {
		return true
	}
	return v.Deleted
}

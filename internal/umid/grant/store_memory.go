package grant

import (
	"context"
	"sync"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
)

// InMemoryStore keeps grants in process memory for dev and tests. Expired
// grants are dropped lazily on read.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[string]models.Grant
}

// NewInMemory constructs an empty in-memory grant store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{grants: make(map[string]models.Grant)}
}

func (s *InMemoryStore) Put(_ context.Context, grant models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.Token] = grant
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, token string) (*models.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if grant.IsExpired(time.Now()) {
		delete(s.grants, token)
		return nil, sentinel.ErrNotFound
	}
	cp := grant
	return &cp, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, token)
	return nil
}

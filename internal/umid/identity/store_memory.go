package identity

import (
	"context"
	"sync"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
)

// InMemoryStore keeps identity records in process memory for dev and tests.
type InMemoryStore struct {
	mu             sync.RWMutex
	byID           map[id.IdentityID]*models.Identity
	byPublicNumber map[string]id.IdentityID
}

// NewInMemory constructs an empty in-memory identity store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:           make(map[id.IdentityID]*models.Identity),
		byPublicNumber: make(map[string]id.IdentityID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPublicNumber[identity.PublicNumber]; exists {
		return sentinel.ErrConflict
	}
	cp := *identity
	s.byID[identity.ID] = &cp
	s.byPublicNumber[identity.PublicNumber] = identity.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.byID[identityID]; ok {
		cp := *identity
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByPublicNumber(_ context.Context, publicNumber string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identityID, ok := s.byPublicNumber[publicNumber]; ok {
		cp := *s.byID[identityID]
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindActiveByPatient(_ context.Context, patientID id.PatientID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.byID {
		if identity.PatientID == patientID && identity.IsActive {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Deactivate(_ context.Context, identityID id.IdentityID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !identity.IsActive {
		return nil
	}
	identity.IsActive = false
	identity.DeactivatedAt = &now
	return nil
}

func (s *InMemoryStore) UpdateMedicalData(_ context.Context, identityID id.IdentityID, data models.LinkedMedicalData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	identity.MedicalData = data
	return nil
}

func (s *InMemoryStore) UpdateLockout(_ context.Context, identityID id.IdentityID, state models.LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	identity.Lockout = state
	return nil
}

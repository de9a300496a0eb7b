// Package identity provides CRUD over the credential record itself: creation
// with a collision-checked public number, activation state, security settings
// and the linked medical data document.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
)

// Store persists identity records. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict when a
// public number collides.
type Store interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	FindByPublicNumber(ctx context.Context, publicNumber string) (*models.Identity, error)
	FindActiveByPatient(ctx context.Context, patientID id.PatientID) (*models.Identity, error)
	// Deactivate is idempotent: deactivating an already-inactive identity
	// is a no-op, and DeactivatedAt is set exactly once.
	Deactivate(ctx context.Context, identityID id.IdentityID, now time.Time) error
	UpdateMedicalData(ctx context.Context, identityID id.IdentityID, data models.LinkedMedicalData) error
	UpdateLockout(ctx context.Context, identityID id.IdentityID, state models.LockoutState) error
}

const (
	// publicNumberAlphabet avoids characters that misread when printed on
	// a card (no 0/O, 1/I/L).
	publicNumberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	publicNumberLength   = 10
	publicNumberPrefix   = "PN-"

	// maxNumberRetries bounds collision retries before issuance fails.
	maxNumberRetries = 5
)

// GeneratePublicNumber returns a fresh human-presentable identifier.
// Uniqueness is only guaranteed by the collision check in Create.
func GeneratePublicNumber() (string, error) {
	buf := make([]byte, publicNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate public number: %w", err)
	}
	out := make([]byte, publicNumberLength)
	for i, b := range buf {
		out[i] = publicNumberAlphabet[int(b)%len(publicNumberAlphabet)]
	}
	return publicNumberPrefix + string(out), nil
}

// Create builds and persists a new identity, regenerating the public number
// on collision. Retries are bounded; exhausting them fails with
// IssuanceFailure.
func Create(
	ctx context.Context,
	store Store,
	patientID id.PatientID,
	encryptedSecret string,
	medicalData models.LinkedMedicalData,
	security models.SecuritySettings,
	code models.CodeSettings,
	now time.Time,
) (*models.Identity, error) {
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		publicNumber, err := GeneratePublicNumber()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailure, "public number generation failed")
		}

		identity, err := models.NewIdentity(patientID, publicNumber, encryptedSecret, medicalData, security, code, now)
		if err != nil {
			return nil, err
		}

		err = store.Create(ctx, identity)
		if err == nil {
			return identity, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to persist identity")
	}
	return nil, dErrors.New(dErrors.CodeIssuanceFailure, "exhausted public number generation retries")
}

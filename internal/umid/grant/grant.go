// Package grant issues and resolves the short-lived access tokens handed to
// staff after a successful authentication.
package grant

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

const tokenBytes = 32

// Store persists grants for their lifetime. Implementations expire grants at
// ExpiresAt; Get on an expired or unknown token returns sentinel.ErrNotFound.
type Store interface {
	Put(ctx context.Context, grant models.Grant) error
	Get(ctx context.Context, token string) (*models.Grant, error)
	// Revoke removes a grant before its natural expiry. Unknown tokens are
	// a no-op.
	Revoke(ctx context.Context, token string) error
}

// NewToken returns a fresh opaque grant token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate grant token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue mints and persists a grant for the given identity and staff member.
func Issue(
	ctx context.Context,
	store Store,
	identityID id.IdentityID,
	staffID id.StaffID,
	level models.GrantAccessLevel,
	ttl time.Duration,
	now time.Time,
) (*models.Grant, error) {
	token, err := NewToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailure, "grant token generation failed")
	}
	grant := models.Grant{
		Token:       token,
		IdentityID:  identityID,
		StaffID:     staffID,
		AccessLevel: level,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := store.Put(ctx, grant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to persist grant")
	}
	return &grant, nil
}

//go:build integration

package grant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client)

	newGrant := func(token string, ttl time.Duration) models.Grant {
		now := time.Now().UTC()
		return models.Grant{
			Token:       token,
			IdentityID:  id.NewIdentityID(),
			StaffID:     id.StaffID(id.NewIdentityID()),
			AccessLevel: models.GrantLevelFull,
			IssuedAt:    now,
			ExpiresAt:   now.Add(ttl),
		}
	}

	t.Run("put then get round trips", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		g := newGrant("round-trip-token", time.Hour)
		require.NoError(t, store.Put(ctx, g))

		got, err := store.Get(ctx, "round-trip-token")
		require.NoError(t, err)
		assert.Equal(t, g.IdentityID, got.IdentityID)
		assert.Equal(t, g.StaffID, got.StaffID)
		assert.Equal(t, models.GrantLevelFull, got.AccessLevel)
	})

	t.Run("redis ttl expires the grant", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.Put(ctx, newGrant("short-token", time.Second)))

		_, err := store.Get(ctx, "short-token")
		require.NoError(t, err)

		time.Sleep(1500 * time.Millisecond)
		_, err = store.Get(ctx, "short-token")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("already expired grants are rejected at put", func(t *testing.T) {
		g := newGrant("expired-token", -time.Minute)
		assert.Error(t, store.Put(ctx, g))
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, err := store.Get(ctx, "never-issued")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("revoke removes the grant", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.Put(ctx, newGrant("revoked-token", time.Hour)))
		require.NoError(t, store.Revoke(ctx, "revoked-token"))

		_, err := store.Get(ctx, "revoked-token")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		// Revoking again is a no-op.
		assert.NoError(t, store.Revoke(ctx, "revoked-token"))
	})
}

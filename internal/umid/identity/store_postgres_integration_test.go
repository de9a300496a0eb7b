//go:build integration

package identity

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

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.DB)

	newIdentity := func(t *testing.T, publicNumber string) *models.Identity {
		t.Helper()
		ident, err := models.NewIdentity(
			id.PatientID(id.NewIdentityID()),
			publicNumber,
			"encrypted-secret-blob",
			models.LinkedMedicalData{
				FullName:          "Jordan Reyes",
				DateOfBirth:       "1984-02-29",
				CriticalAllergies: []string{"penicillin"},
			},
			models.DefaultSecuritySettings(),
			models.DefaultCodeSettings(),
			time.Now().UTC().Truncate(time.Microsecond),
		)
		require.NoError(t, err)
		return ident
	}

	t.Run("create then read back", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		ident := newIdentity(t, "PN-PGAAAA222")
		require.NoError(t, store.Create(ctx, ident))

		byID, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, ident.PublicNumber, byID.PublicNumber)
		assert.Equal(t, ident.MedicalData, byID.MedicalData)
		assert.Equal(t, ident.SecuritySettings, byID.SecuritySettings)
		assert.True(t, byID.IsActive)

		byNumber, err := store.FindByPublicNumber(ctx, "PN-PGAAAA222")
		require.NoError(t, err)
		assert.Equal(t, ident.ID, byNumber.ID)
	})

	t.Run("duplicate public number conflicts", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		require.NoError(t, store.Create(ctx, newIdentity(t, "PN-PGDUP2222")))

		err := store.Create(ctx, newIdentity(t, "PN-PGDUP2222"))
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("unknown lookups are not found", func(t *testing.T) {
		_, err := store.FindByID(ctx, id.NewIdentityID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.FindByPublicNumber(ctx, "PN-NEVER2222")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("deactivate is idempotent", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		ident := newIdentity(t, "PN-PGDEAC222")
		require.NoError(t, store.Create(ctx, ident))

		first := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, store.Deactivate(ctx, ident.ID, first))

		after, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.False(t, after.IsActive)
		require.NotNil(t, after.DeactivatedAt)
		assert.Equal(t, first, after.DeactivatedAt.UTC())

		// Second call must not move the timestamp.
		require.NoError(t, store.Deactivate(ctx, ident.ID, first.Add(time.Hour)))
		again, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, first, again.DeactivatedAt.UTC())

		assert.ErrorIs(t, store.Deactivate(ctx, id.NewIdentityID(), first), sentinel.ErrNotFound)
	})

	t.Run("find active by patient excludes deactivated", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		ident := newIdentity(t, "PN-PGACT2222")
		require.NoError(t, store.Create(ctx, ident))

		found, err := store.FindActiveByPatient(ctx, ident.PatientID)
		require.NoError(t, err)
		assert.Equal(t, ident.ID, found.ID)

		require.NoError(t, store.Deactivate(ctx, ident.ID, time.Now().UTC()))
		_, err = store.FindActiveByPatient(ctx, ident.PatientID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("lockout state round trips", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		ident := newIdentity(t, "PN-PGLOCK222")
		require.NoError(t, store.Create(ctx, ident))

		until := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Microsecond)
		state := models.LockoutState{ConsecutiveFailures: 3, LockedUntil: &until}
		require.NoError(t, store.UpdateLockout(ctx, ident.ID, state))

		stored, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Lockout.ConsecutiveFailures)
		require.NotNil(t, stored.Lockout.LockedUntil)
		assert.True(t, until.Equal(*stored.Lockout.LockedUntil))
	})

	t.Run("medical data update round trips", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		ident := newIdentity(t, "PN-PGMED2222")
		require.NoError(t, store.Create(ctx, ident))

		data := ident.MedicalData
		data.EmergencyNotes = "contact cardiology"
		data.ChronicConditions = []string{"asthma"}
		require.NoError(t, store.UpdateMedicalData(ctx, ident.ID, data))

		stored, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, data, stored.MedicalData)
	})
}

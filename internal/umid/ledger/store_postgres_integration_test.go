//go:build integration

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/testutil/containers"
)

func TestPostgresLedgerStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.DB)

	// Timestamps are truncated to microseconds to survive the timestamptz
	// round trip.
	newEntry := func(identityID id.IdentityID, attemptedAt time.Time) *models.AccessLogEntry {
		return &models.AccessLogEntry{
			ID:              id.NewEntryID(),
			IdentityID:      identityID,
			StaffID:         id.StaffID(id.NewIdentityID()),
			DeclaredRole:    "doctor",
			Purpose:         "emergency treatment",
			AttemptedAt:     attemptedAt.UTC().Truncate(time.Microsecond),
			AccessType:      models.AccessTypeCode,
			Outcome:         models.OutcomeSuccess,
			DisclosedFields: []string{"full_name", "date_of_birth"},
			Device:          models.DeviceInfo{Platform: "Linux", Browser: "Firefox", IP: "10.0.0.7"},
		}
	}

	t.Run("append then read back", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		identityID := id.NewIdentityID()
		entry := newEntry(identityID, time.Now())

		appendedID, err := store.Append(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, appendedID)

		page, err := store.ListByIdentity(ctx, identityID, 10, "")
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)

		got := page.Entries[0]
		assert.Equal(t, entry.ID, got.ID)
		assert.Equal(t, entry.StaffID, got.StaffID)
		assert.Equal(t, entry.DisclosedFields, got.DisclosedFields)
		assert.Equal(t, entry.Device, got.Device)
		assert.True(t, entry.AttemptedAt.Equal(got.AttemptedAt))
	})

	t.Run("failure entries keep their reason", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		identityID := id.NewIdentityID()
		entry := newEntry(identityID, time.Now())
		entry.Outcome = models.OutcomeFailure
		entry.FailureReason = models.ReasonInvalidCode
		entry.DisclosedFields = nil

		_, err := store.Append(ctx, entry)
		require.NoError(t, err)

		page, err := store.ListByIdentity(ctx, identityID, 10, "")
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, models.ReasonInvalidCode, page.Entries[0].FailureReason)
		assert.Empty(t, page.Entries[0].DisclosedFields)
	})

	t.Run("pages newest first through the cursor", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		identityID := id.NewIdentityID()
		base := time.Now().Add(-time.Hour)
		for i := 0; i < 7; i++ {
			_, err := store.Append(ctx, newEntry(identityID, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		var all []models.AccessLogEntry
		cursor := ""
		pages := 0
		for {
			page, err := store.ListByIdentity(ctx, identityID, 3, cursor)
			require.NoError(t, err)
			all = append(all, page.Entries...)
			pages++
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}

		assert.Equal(t, 3, pages)
		require.Len(t, all, 7)
		for i := 1; i < len(all); i++ {
			assert.True(t, all[i].AttemptedAt.Before(all[i-1].AttemptedAt),
				"entries must be strictly newest first")
		}
	})

	t.Run("entries are isolated per identity", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))
		a, b := id.NewIdentityID(), id.NewIdentityID()
		_, err := store.Append(ctx, newEntry(a, time.Now()))
		require.NoError(t, err)
		_, err = store.Append(ctx, newEntry(b, time.Now()))
		require.NoError(t, err)

		page, err := store.ListByIdentity(ctx, a, 10, "")
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, a, page.Entries[0].IdentityID)
	})

	t.Run("garbage cursor is rejected", func(t *testing.T) {
		_, err := store.ListByIdentity(ctx, id.NewIdentityID(), 10, "!!!not-a-cursor")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

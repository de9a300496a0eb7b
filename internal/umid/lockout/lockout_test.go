package lockout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSettings() models.SecuritySettings {
	s := models.DefaultSecuritySettings()
	s.MaxFailedAttempts = 3
	s.LockoutDuration = 30 * time.Minute
	return s
}

func TestEvaluate(t *testing.T) {
	t.Run("open state allows attempts", func(t *testing.T) {
		d := Evaluate(models.LockoutState{}, base)
		assert.False(t, d.Locked)
	})

	t.Run("locked before until blocks", func(t *testing.T) {
		until := base.Add(10 * time.Minute)
		d := Evaluate(models.LockoutState{ConsecutiveFailures: 3, LockedUntil: &until}, base)
		assert.True(t, d.Locked)
		assert.Equal(t, until, d.Until)
	})

	t.Run("lock expires lazily at until", func(t *testing.T) {
		until := base.Add(10 * time.Minute)
		state := models.LockoutState{ConsecutiveFailures: 3, LockedUntil: &until}
		assert.True(t, Evaluate(state, until.Add(-time.Second)).Locked)
		assert.False(t, Evaluate(state, until).Locked)
		assert.False(t, Evaluate(state, until.Add(time.Hour)).Locked)
	})
}

func TestApplyFailure(t *testing.T) {
	settings := testSettings()

	t.Run("failures below max stay open", func(t *testing.T) {
		state := ApplyFailure(models.LockoutState{}, settings, base)
		assert.Equal(t, 1, state.ConsecutiveFailures)
		assert.Nil(t, state.LockedUntil)

		state = ApplyFailure(state, settings, base)
		assert.Equal(t, 2, state.ConsecutiveFailures)
		assert.Nil(t, state.LockedUntil)
	})

	t.Run("reaching max locks until now plus duration", func(t *testing.T) {
		state := models.LockoutState{ConsecutiveFailures: 2}
		state = ApplyFailure(state, settings, base)
		assert.Equal(t, 3, state.ConsecutiveFailures)
		require.NotNil(t, state.LockedUntil)
		assert.Equal(t, base.Add(30*time.Minute), *state.LockedUntil)
	})

	t.Run("failure after expired lock re-locks immediately", func(t *testing.T) {
		// Counter does not reset on lock expiry. The first wrong code after
		// the window opens again locks right back up.
		expired := base.Add(-time.Minute)
		state := models.LockoutState{ConsecutiveFailures: 3, LockedUntil: &expired}
		require.False(t, state.IsLockedAt(base))

		state = ApplyFailure(state, settings, base)
		assert.Equal(t, 4, state.ConsecutiveFailures)
		require.NotNil(t, state.LockedUntil)
		assert.Equal(t, base.Add(30*time.Minute), *state.LockedUntil)
	})
}

func TestApplySuccess(t *testing.T) {
	state := ApplySuccess()
	assert.Zero(t, state.ConsecutiveFailures)
	assert.Nil(t, state.LockedUntil)
}

// entry builds a minimal ledger entry for rebuild tests. Entries are fed
// newest first, matching the ledger's query order.
func entry(at time.Time, outcome models.AccessOutcome, reason models.FailureReason) models.AccessLogEntry {
	return models.AccessLogEntry{
		ID:            id.EntryID(uuid.New()),
		IdentityID:    id.NewIdentityID(),
		AttemptedAt:   at,
		AccessType:    models.AccessTypeCode,
		Outcome:       outcome,
		FailureReason: reason,
	}
}

func TestRebuild(t *testing.T) {
	settings := testSettings()

	t.Run("empty ledger is open", func(t *testing.T) {
		state := Rebuild(nil, settings)
		assert.Zero(t, state.ConsecutiveFailures)
		assert.Nil(t, state.LockedUntil)
	})

	t.Run("counts invalid code failures since last success", func(t *testing.T) {
		entries := []models.AccessLogEntry{
			entry(base.Add(3*time.Minute), models.OutcomeFailure, models.ReasonInvalidCode),
			entry(base.Add(2*time.Minute), models.OutcomeFailure, models.ReasonInvalidCode),
			entry(base.Add(1*time.Minute), models.OutcomeSuccess, ""),
			entry(base, models.OutcomeFailure, models.ReasonInvalidCode),
		}
		state := Rebuild(entries, settings)
		assert.Equal(t, 2, state.ConsecutiveFailures)
		assert.Nil(t, state.LockedUntil)
	})

	t.Run("locked-out rejections never count", func(t *testing.T) {
		// Attempts rejected while locked were never code checks; rebuilding
		// must skip them exactly like the live path did.
		entries := []models.AccessLogEntry{
			entry(base.Add(4*time.Minute), models.OutcomeFailure, models.ReasonLockedOut),
			entry(base.Add(3*time.Minute), models.OutcomeFailure, models.ReasonLockedOut),
			entry(base.Add(2*time.Minute), models.OutcomeFailure, models.ReasonInvalidCode),
			entry(base.Add(1*time.Minute), models.OutcomeFailure, models.ReasonInvalidCode),
			entry(base, models.OutcomeFailure, models.ReasonInvalidCode),
		}
		state := Rebuild(entries, settings)
		assert.Equal(t, 3, state.ConsecutiveFailures)
		require.NotNil(t, state.LockedUntil)
		// Lock anchors to the newest invalid-code failure, not the rejections.
		assert.Equal(t, base.Add(2*time.Minute).Add(30*time.Minute), *state.LockedUntil)
	})

	t.Run("matches live transitions for the same history", func(t *testing.T) {
		live := models.LockoutState{}
		var entries []models.AccessLogEntry
		at := base
		for i := 0; i < 3; i++ {
			at = at.Add(time.Minute)
			live = ApplyFailure(live, settings, at)
			entries = append([]models.AccessLogEntry{
				entry(at, models.OutcomeFailure, models.ReasonInvalidCode),
			}, entries...)
		}

		rebuilt := Rebuild(entries, settings)
		assert.Equal(t, live.ConsecutiveFailures, rebuilt.ConsecutiveFailures)
		require.NotNil(t, rebuilt.LockedUntil)
		assert.Equal(t, *live.LockedUntil, *rebuilt.LockedUntil)
	})

	t.Run("unknown-or-inactive failures never count", func(t *testing.T) {
		entries := []models.AccessLogEntry{
			entry(base.Add(time.Minute), models.OutcomeFailure, models.ReasonUnknownOrInactive),
			entry(base, models.OutcomeFailure, models.ReasonInvalidCode),
		}
		state := Rebuild(entries, settings)
		assert.Equal(t, 1, state.ConsecutiveFailures)
		assert.Nil(t, state.LockedUntil)
	})
}

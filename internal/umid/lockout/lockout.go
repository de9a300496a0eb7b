// Package lockout implements the per-identity failure lockout state machine:
//
//	Open  --failure (below max)--> Open
//	Open  --failure (reaching max)--> Locked(now + lockout duration)
//	Locked --attempt before until--> Locked (rejected before any code check)
//	Locked --attempt after until--> Open (lazy expiry, no background sweep)
//	*     --success--> Open (counter reset)
//
// State is pure data (models.LockoutState) and every transition is a pure
// function of (state, settings, now), so the cached snapshot on the identity
// record and a Rebuild from the ledger tail always agree.
package lockout

import (
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

// Decision is the outcome of evaluating an identity's lockout state at an
// instant.
type Decision struct {
	Locked bool
	Until  time.Time
}

// Evaluate decides whether an attempt at the given instant is blocked.
// A locked identity short-circuits before any code comparison.
func Evaluate(state models.LockoutState, now time.Time) Decision {
	if state.IsLockedAt(now) {
		return Decision{Locked: true, Until: *state.LockedUntil}
	}
	return Decision{}
}

// ApplyFailure records one invalid-code failure. Reaching the configured
// maximum locks the identity until now plus the lockout duration. The counter
// never resets on failure, so a wrong code straight after a lock expires
// re-locks immediately.
func ApplyFailure(state models.LockoutState, settings models.SecuritySettings, now time.Time) models.LockoutState {
	next := models.LockoutState{ConsecutiveFailures: state.ConsecutiveFailures + 1}
	if next.ConsecutiveFailures >= settings.MaxFailedAttempts {
		until := now.Add(settings.LockoutDuration)
		next.LockedUntil = &until
	}
	return next
}

// ApplySuccess resets the counter. Any successful authentication returns the
// identity to Open regardless of prior failure count.
func ApplySuccess() models.LockoutState {
	return models.LockoutState{}
}

// Rebuild reconstructs the lockout state from ledger entries, newest first
// (the ledger's natural query order). Only invalid-code failures count:
// attempts rejected while locked never touched the counter on the live path,
// so they are skipped here too. The walk stops at the most recent success.
//
// This is the recovery path after a crash: the result must match whatever the
// cached snapshot would have said, which the tests pin down.
func Rebuild(entries []models.AccessLogEntry, settings models.SecuritySettings) models.LockoutState {
	var failures int
	var lastFailureAt time.Time

	for _, entry := range entries {
		if entry.Outcome == models.OutcomeSuccess {
			break
		}
		if entry.FailureReason != models.ReasonInvalidCode {
			continue
		}
		if failures == 0 {
			lastFailureAt = entry.AttemptedAt
		}
		failures++
	}

	state := models.LockoutState{ConsecutiveFailures: failures}
	if failures >= settings.MaxFailedAttempts {
		until := lastFailureAt.Add(settings.LockoutDuration)
		state.LockedUntil = &until
	}
	return state
}

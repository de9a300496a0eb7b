// Package totp derives and verifies time-windowed one-time codes. The
// construction is standard HOTP dynamic truncation (RFC 4226 §5.3) over
// HMAC-SHA-256 with the counter set to the current time step.
package totp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

// skewSteps is the clock-skew tolerance in time steps on each side of now.
// The verification window is therefore exactly 3 candidate steps.
const skewSteps = 1

// Engine is a stateless code derivation/verification engine.
type Engine struct{}

// New returns a code engine.
func New() *Engine {
	return &Engine{}
}

// Derive computes the code for one time step, truncated to digits decimal
// digits and left-padded with zeros.
func (e *Engine) Derive(secret []byte, timeStep int64, digits int) string {
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(timeStep))

	mac := hmac.New(sha256.New, secret)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects the offset.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for range digits {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, code%mod)
}

// Verify accepts the supplied code if it matches the derivation for the
// current time step or the immediately preceding/following step. Every
// candidate is compared in constant time and all candidates are always
// evaluated, so the comparison leaks nothing about which step (if any)
// matched.
func (e *Engine) Verify(secret []byte, suppliedCode string, now time.Time, settings models.CodeSettings) bool {
	step := TimeStep(now, settings.Period)

	match := 0
	for delta := int64(-skewSteps); delta <= skewSteps; delta++ {
		candidate := e.Derive(secret, step+delta, settings.Digits)
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(suppliedCode))
	}
	return match == 1
}

// TimeStep returns floor(now / period) as the HOTP counter value.
func TimeStep(now time.Time, period time.Duration) int64 {
	return now.Unix() / int64(period.Seconds())
}

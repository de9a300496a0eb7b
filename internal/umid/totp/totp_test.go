package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

var testSecret = []byte("12345678901234567890")

func settings() models.CodeSettings {
	return models.CodeSettings{
		Digits:    6,
		Period:    30 * time.Second,
		Algorithm: "HMAC-SHA256",
		Issuer:    "HealthSphere UMID",
	}
}

func TestDerive(t *testing.T) {
	engine := New()

	t.Run("deterministic for same inputs", func(t *testing.T) {
		a := engine.Derive(testSecret, 12345, 6)
		b := engine.Derive(testSecret, 12345, 6)
		assert.Equal(t, a, b)
	})

	t.Run("different steps produce different codes", func(t *testing.T) {
		// Adjacent steps colliding is astronomically unlikely for a fixed
		// secret; a collision here means the counter is not being fed in.
		a := engine.Derive(testSecret, 1000, 6)
		b := engine.Derive(testSecret, 1001, 6)
		assert.NotEqual(t, a, b)
	})

	t.Run("different secrets produce different codes", func(t *testing.T) {
		a := engine.Derive(testSecret, 12345, 6)
		b := engine.Derive([]byte("09876543210987654321"), 12345, 6)
		assert.NotEqual(t, a, b)
	})

	t.Run("output is exactly digits long", func(t *testing.T) {
		for _, digits := range []int{6, 7, 8} {
			for step := int64(0); step < 50; step++ {
				code := engine.Derive(testSecret, step, digits)
				require.Len(t, code, digits, "step %d digits %d", step, digits)
				for _, c := range code {
					require.True(t, c >= '0' && c <= '9')
				}
			}
		}
	})
}

func TestVerify(t *testing.T) {
	engine := New()
	cfg := settings()

	// Pin now to the middle of a step so both window edges are exercised by
	// step arithmetic, not wall-clock luck.
	step := int64(54321)
	now := time.Unix(step*30+15, 0)

	t.Run("code for the current step is accepted", func(t *testing.T) {
		code := engine.Derive(testSecret, step, cfg.Digits)
		assert.True(t, engine.Verify(testSecret, code, now, cfg))
	})

	t.Run("codes one step either side are accepted", func(t *testing.T) {
		prev := engine.Derive(testSecret, step-1, cfg.Digits)
		next := engine.Derive(testSecret, step+1, cfg.Digits)
		assert.True(t, engine.Verify(testSecret, prev, now, cfg))
		assert.True(t, engine.Verify(testSecret, next, now, cfg))
	})

	t.Run("codes two or more steps away are rejected", func(t *testing.T) {
		for _, delta := range []int64{-3, -2, 2, 3} {
			code := engine.Derive(testSecret, step+delta, cfg.Digits)
			assert.False(t, engine.Verify(testSecret, code, now, cfg), "delta %d", delta)
		}
	})

	t.Run("garbage codes are rejected", func(t *testing.T) {
		assert.False(t, engine.Verify(testSecret, "", now, cfg))
		assert.False(t, engine.Verify(testSecret, "abcdef", now, cfg))
		assert.False(t, engine.Verify(testSecret, "1234567", now, cfg))
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		code := engine.Derive([]byte("09876543210987654321"), step, cfg.Digits)
		assert.False(t, engine.Verify(testSecret, code, now, cfg))
	})
}

func TestTimeStep(t *testing.T) {
	period := 30 * time.Second

	assert.Equal(t, int64(0), TimeStep(time.Unix(0, 0), period))
	assert.Equal(t, int64(0), TimeStep(time.Unix(29, 0), period))
	assert.Equal(t, int64(1), TimeStep(time.Unix(30, 0), period))
	assert.Equal(t, int64(2), TimeStep(time.Unix(60, 0), period))

	t.Run("period boundary advances the step", func(t *testing.T) {
		now := time.Unix(12345*30, 0)
		assert.Equal(t, TimeStep(now, period)+1, TimeStep(now.Add(period), period))
	})
}

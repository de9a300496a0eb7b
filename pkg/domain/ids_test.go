package domain

import (
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

func TestParseIdentityID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentityID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseIdentityID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIdentityID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParseIdentityID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, IdentityID(valid), parsed)
	})
}

// All ID types share one parse helper; a drift between them would let one
// trust boundary accept what another rejects.
func TestParseConsistencyAcrossIDTypes(t *testing.T) {
	for _, input := range []string{"", "not-a-uuid", uuid.Nil.String(), uuid.New().String()} {
		_, errIdentity := ParseIdentityID(input)
		_, errPatient := ParsePatientID(input)
		_, errStaff := ParseStaffID(input)
		_, errEntry := ParseEntryID(input)

		assert.Equal(t, errIdentity == nil, errPatient == nil, "input %q", input)
		assert.Equal(t, errIdentity == nil, errStaff == nil, "input %q", input)
		assert.Equal(t, errIdentity == nil, errEntry == nil, "input %q", input)
	}
}

func FuzzParseIdentityID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE identities;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseIdentityID(input)
		if err == nil {
			roundTrip, err2 := ParseIdentityID(parsed.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != parsed {
				t.Error("round-trip changed the id value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-utf8 input was accepted")
		}
	})
}

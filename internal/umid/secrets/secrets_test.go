package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewKeeper(t *testing.T) {
	t.Run("32 byte key is accepted", func(t *testing.T) {
		keeper, err := NewKeeper(testKey(t))
		require.NoError(t, err)
		assert.NotNil(t, keeper)
	})

	t.Run("short key is rejected", func(t *testing.T) {
		_, err := NewKeeper([]byte("too-short"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
	})
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, SecretLength)
	assert.NotEqual(t, a, b)
}

func TestEncryptDecrypt(t *testing.T) {
	keeper, err := NewKeeper(testKey(t))
	require.NoError(t, err)

	t.Run("round trip recovers the seed", func(t *testing.T) {
		seed, err := GenerateSecret()
		require.NoError(t, err)

		blob, err := keeper.Encrypt(seed)
		require.NoError(t, err)
		assert.NotContains(t, blob, string(seed))

		recovered, err := keeper.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, seed, recovered)
	})

	t.Run("encrypting twice yields distinct blobs", func(t *testing.T) {
		seed, err := GenerateSecret()
		require.NoError(t, err)

		first, err := keeper.Encrypt(seed)
		require.NoError(t, err)
		second, err := keeper.Encrypt(seed)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("empty seed is rejected", func(t *testing.T) {
		_, err := keeper.Encrypt(nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("tampered blob fails closed", func(t *testing.T) {
		seed, err := GenerateSecret()
		require.NoError(t, err)
		blob, err := keeper.Encrypt(seed)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(blob)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		tampered := base64.RawURLEncoding.EncodeToString(raw)

		_, err = keeper.Decrypt(tampered)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
	})

	t.Run("malformed blob fails closed", func(t *testing.T) {
		for _, blob := range []string{"", "not base64!!!", "c2hvcnQ"} {
			_, err := keeper.Decrypt(blob)
			require.Error(t, err, "blob %q", blob)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
		}
	})

	t.Run("wrong key fails closed", func(t *testing.T) {
		seed, err := GenerateSecret()
		require.NoError(t, err)
		blob, err := keeper.Encrypt(seed)
		require.NoError(t, err)

		other, err := NewKeeper(testKey(t))
		require.NoError(t, err)
		_, err = other.Decrypt(blob)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
	})
}

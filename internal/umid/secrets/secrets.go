// Package secrets encrypts per-identity one-time-code seeds at rest. The raw
// seed never appears in logs, error messages, or persisted records; everything
// outside this package and the code engine sees only the opaque blob.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// SecretLength is the size in bytes of a generated one-time-code seed.
const SecretLength = 20

// Keeper performs authenticated encryption of credential seeds with a
// process-level master key. Stateless; safe for concurrent use.
type Keeper struct {
	aead cipher.AEAD
}

// NewKeeper builds a Keeper from a 32-byte master key.
func NewKeeper(masterKey []byte) (*Keeper, error) {
	aead, err := chacha20poly1305.NewX(masterKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "invalid master key")
	}
	return &Keeper{aead: aead}, nil
}

// GenerateSecret returns a fresh random seed. Never derived from patient data.
func GenerateSecret() ([]byte, error) {
	buf := make([]byte, SecretLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("could not generate secret: %w", err)
	}
	return buf, nil
}

// Encrypt seals the raw seed and returns a base64url blob with the random
// nonce prepended.
func (k *Keeper) Encrypt(rawSecret []byte) (string, error) {
	if len(rawSecret) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptoFailure, "could not generate nonce")
	}
	sealed := k.aead.Seal(nonce, nonce, rawSecret, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. A malformed blob or wrong key
// fails with CryptoFailure: the caller must treat this as fatal for the
// authentication attempt and never fall back to an unauthenticated path.
func (k *Keeper) Decrypt(blob string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "malformed secret blob")
	}
	nonceSize := k.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "malformed secret blob")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	raw, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "could not decrypt secret")
	}
	return raw, nil
}

// Package domain defines the key custody contract used by archive envelope encryption.
package domain

import (
	"context"
	"crypto/rsa"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// PublicKey is a custody-managed RSA public key. Encoded is the base64 PKIX DER
// form stored on archived records; it is the lookup key for Decrypt.
type PublicKey struct {
	Key       *rsa.PublicKey
	Encoded   string
	Label     string
	Algorithm cryptoDomain.KeyAlgorithm
}

// KeyCustody owns the asymmetric keys protecting payload secrets and the pepper
// used for anonymized identifiers. Exactly one implementation is active per process.
type KeyCustody interface {
	// PublicKey returns a key suitable for wrapping a new payload secret.
	PublicKey(ctx context.Context) (*PublicKey, error)

	// Pepper returns the identifier pepper.
	Pepper(ctx context.Context) ([]byte, error)

	// Decrypt unwraps ciphertext with the private key matching encodedPublicKey.
	Decrypt(ctx context.Context, ciphertext []byte, encodedPublicKey string) ([]byte, error)

	// Encrypt wraps plaintext with the key matching encodedPublicKey.
	Encrypt(ctx context.Context, plaintext []byte, encodedPublicKey string) ([]byte, error)
}

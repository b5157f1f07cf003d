package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// GenerateSecret returns a fresh random payload secret.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, cryptoDomain.SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// WrapSecret encrypts secret with RSA-OAEP (SHA-256).
func WrapSecret(pub *rsa.PublicKey, secret []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, secret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap secret: %w", err)
	}
	return wrapped, nil
}

// UnwrapSecret decrypts a secret produced by WrapSecret.
func UnwrapSecret(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	secret, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, cryptoDomain.ErrSecretDecryptionFailed
	}
	return secret, nil
}

// EncodePublicKey returns the base64 encoding of the PKIX DER form of pub. The
// encoding is stored on every archived record and identifies the custody key.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ParsePublicKeyPEM parses a PEM "PUBLIC KEY" block holding an RSA key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}
	return parsePKIX(block.Bytes)
}

// ParseEncodedPublicKey reverses EncodePublicKey.
func ParseEncodedPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}
	return parsePKIX(der)
}

func parsePKIX(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}
	return pub, nil
}

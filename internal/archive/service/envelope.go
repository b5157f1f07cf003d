// Package service implements the cryptographic building blocks of the archive:
// envelope encryption of payloads and anonymized identifier derivation.
package service

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	cryptoService "github.com/allisson/archivist/internal/crypto/service"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
)

// Envelope is a payload sealed under a fresh secret, with the secret wrapped by
// a custody public key.
type Envelope struct {
	Ciphertext      []byte
	EncryptedSecret []byte
	PublicKey       string
	SecretAlgorithm cryptoDomain.Algorithm
	KeyAlgorithm    cryptoDomain.KeyAlgorithm
}

// EnvelopeService seals and opens envelopes. Sealing only needs a public key;
// opening always goes through key custody.
type EnvelopeService struct {
	aeadManager cryptoService.AEADManager
	custody     custodyDomain.KeyCustody
	algorithm   cryptoDomain.Algorithm
}

// NewEnvelopeService creates an EnvelopeService sealing with algorithm.
func NewEnvelopeService(
	aeadManager cryptoService.AEADManager,
	custody custodyDomain.KeyCustody,
	algorithm cryptoDomain.Algorithm,
) *EnvelopeService {
	return &EnvelopeService{
		aeadManager: aeadManager,
		custody:     custody,
		algorithm:   algorithm,
	}
}

// Seal encrypts plaintext under a new secret bound to aad and wraps the secret with pub.
func (s *EnvelopeService) Seal(
	_ context.Context,
	plaintext, aad []byte,
	pub *custodyDomain.PublicKey,
) (*Envelope, error) {
	if pub == nil || pub.Key == nil {
		return nil, cryptoDomain.ErrInvalidPublicKey
	}

	secret, err := cryptoService.GenerateSecret()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(secret)

	aead, err := s.aeadManager.CreateCipher(secret, s.algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cryptoService.Seal(aead, plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	wrapped, err := cryptoService.WrapSecret(pub.Key, secret)
	if err != nil {
		return nil, err
	}

	keyAlgorithm := pub.Algorithm
	if keyAlgorithm == "" {
		keyAlgorithm = cryptoDomain.RSAOAEPSHA256
	}

	return &Envelope{
		Ciphertext:      ciphertext,
		EncryptedSecret: wrapped,
		PublicKey:       pub.Encoded,
		SecretAlgorithm: s.algorithm,
		KeyAlgorithm:    keyAlgorithm,
	}, nil
}

// Open unwraps the envelope secret through custody and decrypts the payload.
func (s *EnvelopeService) Open(ctx context.Context, env *Envelope, aad []byte) ([]byte, error) {
	secret, err := s.custody.Decrypt(ctx, env.EncryptedSecret, env.PublicKey)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(secret)

	if len(secret) != cryptoDomain.SecretSize {
		return nil, cryptoDomain.ErrSecretDecryptionFailed
	}

	algorithm := env.SecretAlgorithm
	if algorithm == "" {
		algorithm = cryptoDomain.AESGCM
	}

	aead, err := s.aeadManager.CreateCipher(secret, algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := cryptoService.Open(aead, env.Ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
)

// Cipher adapts a standard cipher.AEAD to the AEAD interface. Every Encrypt draws
// a fresh random nonce; since each archived record has its own secret, a key
// never sees more than a handful of nonces.
type Cipher struct {
	alg  cryptoDomain.Algorithm
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher from a 32 byte key.
func NewAESGCM(key []byte) (*Cipher, error) {
	if len(key) != cryptoDomain.SecretSize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{alg: cryptoDomain.AESGCM, aead: aead}, nil
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher from a 32 byte key.
func NewChaCha20Poly1305(key []byte) (*Cipher, error) {
	if len(key) != cryptoDomain.SecretSize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}
	return &Cipher{alg: cryptoDomain.ChaCha20, aead: aead}, nil
}

// Algorithm reports which AEAD backs the cipher.
func (c *Cipher) Algorithm() cryptoDomain.Algorithm {
	return c.alg
}

// Encrypt seals plaintext and returns the ciphertext, tag included, with its nonce.
func (c *Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// Decrypt authenticates and opens ciphertext. aad must match the value used to encrypt.
func (c *Cipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (c *Cipher) NonceSize() int {
	return c.aead.NonceSize()
}

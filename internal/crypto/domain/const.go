// Package domain defines the algorithm identifiers and errors of the archive cryptography.
package domain

// Algorithm represents the AEAD used to encrypt archived payloads.
//
// Both algorithms use 256-bit keys, 12-byte nonces and 16-byte tags, so a
// payload secret generated for one can be used with the other.
type Algorithm string

const (
	// AESGCM is AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305. Preferred where AES hardware support is missing.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeyAlgorithm represents the asymmetric scheme protecting a payload secret.
type KeyAlgorithm string

// RSAOAEPSHA256 is RSA-OAEP with SHA-256 as both hash and MGF1 hash, the scheme
// used by local keystores and by the Vault transit engine for RSA keys.
const RSAOAEPSHA256 KeyAlgorithm = "rsa-oaep-sha256"

// SecretSize is the size in bytes of every payload secret.
const SecretSize = 32

// ParseAlgorithm validates an AEAD identifier.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

package domain

import (
	"github.com/allisson/archivist/internal/errors"
)

// Cryptographic errors. The decryption errors deliberately carry no detail
// about which check failed.
var (
	// ErrUnsupportedAlgorithm indicates an unknown AEAD or key algorithm identifier.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a symmetric key that is not 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidPublicKey indicates a public key that cannot be parsed as RSA.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key")

	// ErrDecryptionFailed indicates the payload could not be opened with the recovered secret.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrUnsupportedKeeper indicates a key URI whose scheme has no linked keeper driver.
	ErrUnsupportedKeeper = errors.Wrap(errors.ErrInvalidInput, "unsupported keeper")

	// ErrSecretDecryptionFailed indicates the payload secret could not be recovered
	// from its wrapped form.
	ErrSecretDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "secret decryption failed")
)

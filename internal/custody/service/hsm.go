package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
	"github.com/allisson/archivist/internal/errors"
)

// HSMCustody delegates secret unwrapping to a KMS or HSM key. The private key never
// leaves the device, so new public keys cannot be handed out and records are
// archived by another backend.
type HSMCustody struct {
	keeper        cryptoDomain.KMSKeeper
	wrappedPepper []byte
	timeout       time.Duration

	mu     sync.Mutex
	pepper []byte
}

// NewHSMCustody creates the backend. wrappedPepper is the base64 ciphertext of the
// pepper produced by the same keeper.
func NewHSMCustody(
	keeper cryptoDomain.KMSKeeper,
	wrappedPepper string,
	timeout time.Duration,
) (*HSMCustody, error) {
	var wrapped []byte
	if wrappedPepper != "" {
		var err error
		wrapped, err = base64.StdEncoding.DecodeString(wrappedPepper)
		if err != nil {
			return nil, errors.Wrap(custodyDomain.ErrPepperUnavailable, "wrapped pepper is not valid base64")
		}
	}
	return &HSMCustody{
		keeper:        keeper,
		wrappedPepper: wrapped,
		timeout:       timeout,
	}, nil
}

// PublicKey is not available from an HSM backend.
func (h *HSMCustody) PublicKey(ctx context.Context) (*custodyDomain.PublicKey, error) {
	return nil, custodyDomain.ErrOperationNotSupported
}

// Encrypt is not available from an HSM backend.
func (h *HSMCustody) Encrypt(ctx context.Context, plaintext []byte, encodedPublicKey string) ([]byte, error) {
	return nil, custodyDomain.ErrOperationNotSupported
}

// Decrypt unwraps ciphertext inside the HSM.
func (h *HSMCustody) Decrypt(ctx context.Context, ciphertext []byte, encodedPublicKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	plaintext, err := h.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrSecretDecryptionFailed, err)
	}
	return plaintext, nil
}

// Pepper unwraps the configured pepper on first use and keeps it for the process lifetime.
// Failed attempts are not cached.
func (h *HSMCustody) Pepper(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pepper != nil {
		return h.pepper, nil
	}
	if len(h.wrappedPepper) == 0 {
		return nil, custodyDomain.ErrPepperUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	pepper, err := h.keeper.Decrypt(ctx, h.wrappedPepper)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custodyDomain.ErrPepperUnavailable, err)
	}
	h.pepper = pepper
	return pepper, nil
}

// Close releases the keeper.
func (h *HSMCustody) Close() error {
	return h.keeper.Close()
}

package domain

import (
	"github.com/allisson/archivist/internal/errors"
)

// Key custody errors.
var (
	// ErrKeyNotFound indicates no managed key matches the given public key.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "custody key not found")

	// ErrNoKeys indicates the custody backend holds no usable key.
	ErrNoKeys = errors.Wrap(errors.ErrNotFound, "no custody keys available")

	// ErrPepperUnavailable indicates the pepper is not configured or could not be recovered.
	ErrPepperUnavailable = errors.Wrap(errors.ErrInvalidInput, "pepper unavailable")

	// ErrOperationNotSupported indicates the backend cannot perform the operation.
	ErrOperationNotSupported = errors.Wrap(errors.ErrNotImplemented, "operation not supported by custody backend")

	// ErrCustodyUnavailable indicates the remote custody backend failed to respond.
	ErrCustodyUnavailable = errors.Wrap(errors.ErrUnavailable, "custody backend unavailable")
)

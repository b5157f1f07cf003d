package domain

import (
	"github.com/allisson/archivist/internal/errors"
)

// Archive errors.
var (
	// ErrRecordNotFound indicates the short-term record does not exist.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "test record not found")

	// ErrArchivedRecordNotFound indicates no archived version exists.
	ErrArchivedRecordNotFound = errors.Wrap(errors.ErrNotFound, "archived record not found")

	// ErrInvalidPayload indicates decrypted bytes are not a valid payload.
	ErrInvalidPayload = errors.Wrap(errors.ErrInvalidInput, "invalid archive payload")

	// ErrMissingIdentity indicates a record lacks the birthday or surname needed for its identifier.
	ErrMissingIdentity = errors.Wrap(errors.ErrInvalidInput, "record lacks birthday or surname")
)

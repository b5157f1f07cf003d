package domain

import (
	"github.com/allisson/archivist/internal/errors"
)

// Cancellation errors.
var (
	// ErrCancellationNotFound indicates no cancellation exists for the tenant.
	ErrCancellationNotFound = errors.Wrap(errors.ErrNotFound, "cancellation not found")

	// ErrCancellationAlreadyExists indicates the tenant was already cancelled.
	ErrCancellationAlreadyExists = errors.Wrap(errors.ErrConflict, "cancellation already exists")

	// ErrStepNotAllowed indicates a step is already stamped or its predecessor is missing.
	ErrStepNotAllowed = errors.Wrap(errors.ErrConflict, "cancellation step not allowed")

	// ErrCSVNotReady indicates the export file has not been uploaded yet.
	ErrCSVNotReady = errors.Wrap(errors.ErrConflict, "cancellation export not ready")

	// ErrArchiveIncomplete indicates a tenant's short-term records were not all archived.
	ErrArchiveIncomplete = errors.New("tenant archive migration incomplete")
)

// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/archivist/internal/errors"
)

// identifierRegex matches identifiers that are safe to use as object keys and URL path segments.
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// SafeIdentifier validates that a string can be embedded in object keys and URLs unchanged.
var SafeIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return identifierRegex.MatchString(s) && !strings.Contains(s, "..")
	},
	validation.NewError(
		"validation_safe_identifier",
		"must start with a letter or digit and contain only letters, digits, '.', '_', ':' or '-'",
	),
)

// NotZeroTime validates that a time.Time value is set.
var NotZeroTime = validation.By(func(value interface{}) error {
	t, ok := value.(time.Time)
	if !ok {
		return validation.NewError("validation_time_type", "must be a time")
	}
	if t.IsZero() {
		return validation.NewError("validation_time_zero", "must be set")
	}
	return nil
})

package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/archivist/internal/errors"
)

func TestStringRules(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "uuid", input: "0b1c6f0e-7c1f-4a51-9d56-0c0f0f6d1a11", valid: true},
		{name: "dotted", input: "tenant.berlin_01", valid: true},
		{name: "with colon", input: "tenant:42", valid: true},
		{name: "slash", input: "tenant/1"},
		{name: "parent reference", input: "a..b"},
		{name: "leading dot", input: ".hidden"},
		{name: "space", input: "tenant 1"},
		{name: "blank", input: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.Join(SafeIdentifier.Validate(tt.input), NotBlank.Validate(tt.input))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	// Empty values are left to validation.Required
	assert.NoError(t, SafeIdentifier.Validate(""))
	assert.NoError(t, NotBlank.Validate(""))
}

func TestNotZeroTime(t *testing.T) {
	assert.NoError(t, NotZeroTime.Validate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Error(t, NotZeroTime.Validate(time.Time{}))
	assert.Error(t, NotZeroTime.Validate("2026-03-01"))
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), assert.AnError.Error())
}

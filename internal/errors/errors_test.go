package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestNew(t *testing.T) {
	err := New("test error")
	require.Error(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		require.Error(t, wrapped)
		assert.Equal(t, "wrapped: base error", wrapped.Error())
		assert.True(t, Is(wrapped, baseErr))
	})

	t.Run("wrap nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "wrapped"))
	})
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrNotFound, "cancellation %s", "tenant-1")
	require.Error(t, wrapped)
	assert.Equal(t, "cancellation tenant-1: not found", wrapped.Error())
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestAs(t *testing.T) {
	err := Wrap(customError{Msg: "custom"}, "outer")

	var target customError
	require.True(t, As(err, &target))
	assert.Equal(t, "custom", target.Msg)
}

func TestJoin(t *testing.T) {
	err := Join(ErrUnavailable, nil, ErrConflict)
	assert.True(t, Is(err, ErrUnavailable))
	assert.True(t, Is(err, ErrConflict))
	assert.NoError(t, Join(nil, nil))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrNotImplemented, ErrUnavailable}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

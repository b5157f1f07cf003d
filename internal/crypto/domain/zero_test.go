package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("zero non-empty slice", func(t *testing.T) {
		b := []byte{1, 2, 3, 4, 5}
		Zero(b)
		assert.Equal(t, make([]byte, 5), b)
	})

	t.Run("zero nil slice", func(t *testing.T) {
		var b []byte
		assert.NotPanics(t, func() { Zero(b) })
	})

	t.Run("zero secret", func(t *testing.T) {
		b := make([]byte, SecretSize)
		for i := range b {
			b[i] = byte(i + 1)
		}
		Zero(b)
		assert.Equal(t, make([]byte, SecretSize), b)
	})
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("aes-gcm")
	assert.NoError(t, err)
	assert.Equal(t, AESGCM, alg)

	alg, err = ParseAlgorithm("chacha20-poly1305")
	assert.NoError(t, err)
	assert.Equal(t, ChaCha20, alg)

	_, err = ParseAlgorithm("des")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGOTPGenerator_RandomSecret(t *testing.T) {
	gen := NewGOTPGenerator()

	secret := gen.RandomSecret(32)
	assert.Len(t, secret, 32)

	other := gen.RandomSecret(32)
	assert.NotEqual(t, secret, other)
}

func TestGOTPGenerator_RandomCode(t *testing.T) {
	gen := NewGOTPGenerator()

	code, err := gen.RandomCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)

	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code must be numeric, got %q", code)
	}
}

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	hasher := NewBcryptHasher(4)

	hashed, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "s3cret-password", hashed)

	assert.True(t, hasher.Compare(hashed, "s3cret-password"))
	assert.False(t, hasher.Compare(hashed, "wrong-password"))
}

func TestBcryptHasher_DistinctHashes(t *testing.T) {
	hasher := NewBcryptHasher(4)

	first, err := hasher.Hash("same-input")
	require.NoError(t, err)
	second, err := hasher.Hash("same-input")
	require.NoError(t, err)

	// bcrypt salts per call
	assert.NotEqual(t, first, second)
}

func TestNewBcryptHasher_CostOutOfRange(t *testing.T) {
	hasher := NewBcryptHasher(100)

	hashed, err := hasher.Hash("password")
	require.NoError(t, err)
	assert.True(t, hasher.Compare(hashed, "password"))
}

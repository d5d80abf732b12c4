package auth

import (
	"testing"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(config.JWTConfig{
		SigningKey:      "test-signing-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	return m
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(config.JWTConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewManager(config.JWTConfig{SigningKey: "k", RefreshTokenTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewManager(config.JWTConfig{SigningKey: "k", AccessTokenTTL: time.Minute})
	assert.Error(t, err)
}

func TestManager_JWTRoundTrip(t *testing.T) {
	m := testManager(t)

	in := domain.SessionClaims{
		UserID:           uuid.New(),
		Name:             "Alice",
		Email:            "alice@example.com",
		Role:             domain.RoleAdmin,
		TwoFactorEnabled: true,
		Provider:         "credentials",
	}

	accessToken, ttl, err := m.NewJWT(in)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	out, err := m.Parse(accessToken)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestManager_ParseRejectsForeignKey(t *testing.T) {
	m := testManager(t)

	other, err := NewManager(config.JWTConfig{
		SigningKey:      "another-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	accessToken, _, err := other.NewJWT(domain.SessionClaims{UserID: uuid.New(), Email: "a@b.c", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = m.Parse(accessToken)
	assert.Error(t, err)
}

func TestManager_RefreshToken(t *testing.T) {
	m := testManager(t)

	token, ttl, err := m.NewRefreshToken()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	parsed, err := m.ValidateRefreshToken(token.String())
	require.NoError(t, err)
	assert.Equal(t, token, *parsed)

	_, err = m.ValidateRefreshToken("not-a-uuid")
	assert.Error(t, err)
}

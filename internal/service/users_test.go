package service

import (
	"context"
	"testing"
	"time"

	"github.com/loopauth/backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp_CreatesUnverifiedUserAndIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.userService.SignUp(context.Background(), SignUpInput{
		Name:     "Alice",
		Email:    "Alice@Example.COM",
		Password: "correct horse",
	}))

	user, err := env.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, user.Verified())
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, env.hasher.Compare(user.PasswordHash.String, "correct horse"))

	sent := env.emails.byKind("verification")
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].email)
	assert.Len(t, sent[0].code, env.authConfig.VerificationCodeLength)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", false)

	err := env.userService.SignUp(context.Background(), SignUpInput{
		Name:     "Impostor",
		Email:    "ALICE@example.com",
		Password: "other password",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExist)
}

func TestRefresh_RotatesSession(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", true)

	tokens, err := signIn(env, "alice@example.com", "correct horse", "")
	require.NoError(t, err)

	refreshed, err := env.userService.Refresh(context.Background(), RefreshInput{
		RefreshToken: tokens.RefreshToken.String(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	// the spent refresh token no longer works
	_, err = env.userService.Refresh(context.Background(), RefreshInput{
		RefreshToken: tokens.RefreshToken.String(),
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefresh_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.userService.Refresh(context.Background(), RefreshInput{RefreshToken: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefresh_ExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", true)

	tokens, err := signIn(env, "alice@example.com", "correct horse", "")
	require.NoError(t, err)

	env.sessions.mu.Lock()
	for _, s := range env.sessions.sessions {
		s.ExpiresIn = time.Now().Add(-time.Minute)
	}
	env.sessions.mu.Unlock()

	_, err = env.userService.Refresh(context.Background(), RefreshInput{
		RefreshToken: tokens.RefreshToken.String(),
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefresh_RecomposesClaimsFromStoredUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", true)

	tokens, err := signIn(env, "alice@example.com", "correct horse", "")
	require.NoError(t, err)

	// the user changed since the session was minted
	require.NoError(t, env.users.SetTwoFactorEnabled(context.Background(), user.ID, true))

	refreshed, err := env.userService.Refresh(context.Background(), RefreshInput{
		RefreshToken: tokens.RefreshToken.String(),
	})
	require.NoError(t, err)

	claims, err := env.tokenManager.Parse(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.TwoFactorEnabled)
	assert.Equal(t, ProviderCredentials, claims.Provider)
}

func TestRefresh_AppliesClaimsPatch(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", true)

	tokens, err := signIn(env, "alice@example.com", "correct horse", "")
	require.NoError(t, err)

	name := "Alicia"
	refreshed, err := env.userService.Refresh(context.Background(), RefreshInput{
		RefreshToken: tokens.RefreshToken.String(),
		Patch:        &domain.SessionClaimsPatch{Name: &name},
	})
	require.NoError(t, err)

	claims, err := env.tokenManager.Parse(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", claims.Name)
	// untouched fields keep their recomposed values
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestSetTwoFactorEnabled(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", true)

	require.NoError(t, env.userService.SetTwoFactorEnabled(context.Background(), user.ID, true))

	updated, err := env.userService.GetOneByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, updated.TwoFactorEnabled)
}

package service

import (
	"context"
	"testing"

	"github.com/loopauth/backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFactorUser(t *testing.T, env *testEnv) *domain.User {
	t.Helper()

	user := env.createUser(t, "alice@example.com", "correct horse", true)
	require.NoError(t, env.users.SetTwoFactorEnabled(context.Background(), user.ID, true))
	return user
}

func TestTwoFactorRequestChallenge(t *testing.T) {
	env := newTestEnv(t)
	user := twoFactorUser(t, env)

	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))

	sent := env.emails.byKind("twoFactorCode")
	require.Len(t, sent, 1)

	stored, err := env.codes.Consume(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, sent[0].code, stored)
}

func TestTwoFactorRequestChallenge_ReplacesPendingCode(t *testing.T) {
	env := newTestEnv(t)
	user := twoFactorUser(t, env)

	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))
	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))

	sent := env.emails.byKind("twoFactorCode")
	require.Len(t, sent, 2)

	stored, err := env.codes.Consume(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, sent[1].code, stored)
}

func TestTwoFactorRequestChallenge_RequiresEnabledUser(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", true)

	err := env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.twoFactorService.RequestChallenge(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTwoFactorConfirmChallenge(t *testing.T) {
	env := newTestEnv(t)
	user := twoFactorUser(t, env)

	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))
	code := env.emails.byKind("twoFactorCode")[0].code

	require.NoError(t, env.twoFactorService.ConfirmChallenge(context.Background(), "alice@example.com", code))

	_, err := env.confirmations.GetByUserID(context.Background(), user.ID)
	assert.NoError(t, err)

	// the code is single use
	err = env.twoFactorService.ConfirmChallenge(context.Background(), "alice@example.com", code)
	assert.ErrorIs(t, err, ErrTwoFactorCodeMismatch)
}

func TestTwoFactorConfirmChallenge_WrongCode(t *testing.T) {
	env := newTestEnv(t)
	user := twoFactorUser(t, env)

	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))

	err := env.twoFactorService.ConfirmChallenge(context.Background(), "alice@example.com", "999999")
	if err == nil {
		t.Skip("random code collided with the guess")
	}
	assert.ErrorIs(t, err, ErrTwoFactorCodeMismatch)

	_, err = env.confirmations.GetByUserID(context.Background(), user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTwoFactorConfirmThenSignIn(t *testing.T) {
	env := newTestEnv(t)
	twoFactorUser(t, env)

	require.NoError(t, env.twoFactorService.RequestChallenge(context.Background(), "alice@example.com"))
	code := env.emails.byKind("twoFactorCode")[0].code
	require.NoError(t, env.twoFactorService.ConfirmChallenge(context.Background(), "alice@example.com", code))

	tokens, err := signIn(env, "alice@example.com", "correct horse", "")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
}

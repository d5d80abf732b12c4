package service

import (
	"testing"

	"github.com/loopauth/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComposeClaims(t *testing.T) {
	user := &domain.User{
		ID:               uuid.New(),
		Name:             "Alice",
		Email:            "alice@example.com",
		Role:             domain.RoleAdmin,
		TwoFactorEnabled: true,
	}

	claims := ComposeClaims(user, "google")

	assert.Equal(t, domain.SessionClaims{
		UserID:           user.ID,
		Name:             "Alice",
		Email:            "alice@example.com",
		Role:             domain.RoleAdmin,
		TwoFactorEnabled: true,
		Provider:         "google",
	}, claims)
}

func TestApplyClaimsPatch_NilPatchIsIdentity(t *testing.T) {
	claims := domain.SessionClaims{Name: "Alice", Email: "alice@example.com"}

	assert.Equal(t, claims, ApplyClaimsPatch(claims, nil))
}

func TestApplyClaimsPatch_AbsentFieldsKeepValues(t *testing.T) {
	claims := domain.SessionClaims{
		Name:             "Alice",
		Email:            "alice@example.com",
		Role:             domain.RoleUser,
		TwoFactorEnabled: true,
	}

	name := "Alicia"
	patched := ApplyClaimsPatch(claims, &domain.SessionClaimsPatch{Name: &name})

	assert.Equal(t, "Alicia", patched.Name)
	assert.Equal(t, "alice@example.com", patched.Email)
	assert.Equal(t, domain.RoleUser, patched.Role)
	assert.True(t, patched.TwoFactorEnabled)
}

func TestApplyClaimsPatch_ExplicitZeroValuesOverride(t *testing.T) {
	claims := domain.SessionClaims{
		Name:             "Alice",
		TwoFactorEnabled: true,
	}

	empty := ""
	off := false
	patched := ApplyClaimsPatch(claims, &domain.SessionClaimsPatch{
		Name:             &empty,
		TwoFactorEnabled: &off,
	})

	assert.Equal(t, "", patched.Name)
	assert.False(t, patched.TwoFactorEnabled)
}

func TestApplyClaimsPatch_Role(t *testing.T) {
	claims := domain.SessionClaims{Role: domain.RoleUser}

	admin := domain.RoleAdmin
	patched := ApplyClaimsPatch(claims, &domain.SessionClaimsPatch{Role: &admin})

	assert.Equal(t, domain.RoleAdmin, patched.Role)
}

package service

import "github.com/loopauth/backend/internal/domain"

// ComposeClaims derives the session view of a user. Claims are rebuilt from
// the stored user on every session creation and refresh, never persisted.
func ComposeClaims(user *domain.User, provider string) domain.SessionClaims {
	return domain.SessionClaims{
		UserID:           user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
		Provider:         provider,
	}
}

// ApplyClaimsPatch overlays a sparse patch onto composed claims. Only fields
// with a non-nil pointer are applied, so an explicit zero value ("" or false)
// overrides while an absent field leaves the claim untouched.
func ApplyClaimsPatch(claims domain.SessionClaims, patch *domain.SessionClaimsPatch) domain.SessionClaims {
	if patch == nil {
		return claims
	}

	if patch.Name != nil {
		claims.Name = *patch.Name
	}
	if patch.Email != nil {
		claims.Email = *patch.Email
	}
	if patch.Role != nil {
		claims.Role = *patch.Role
	}
	if patch.TwoFactorEnabled != nil {
		claims.TwoFactorEnabled = *patch.TwoFactorEnabled
	}

	return claims
}

package domain

import "github.com/google/uuid"

// SessionClaims is the derived, non-persistent view embedded into the access
// token. Provider names the provider of the current sign-in, not the one the
// identity originally registered with.
type SessionClaims struct {
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name,omitempty"`
	Email            string    `json:"email"`
	Role             UserRole  `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	Provider         string    `json:"provider,omitempty"`
}

// SessionClaimsPatch is a sparse update: a field is applied iff its pointer
// is non-nil, so an explicit empty value is distinguishable from "not
// supplied".
type SessionClaimsPatch struct {
	Name             *string   `json:"name"`
	Email            *string   `json:"email"`
	Role             *UserRole `json:"role"`
	TwoFactorEnabled *bool     `json:"two_factor_enabled"`
}

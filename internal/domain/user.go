package domain

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the identity root. PasswordHash is absent for provider-only
// accounts (registered via a linked OAuth provider, never set a password).
type User struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Email            string         `db:"email" json:"email"`
	PasswordHash     sql.NullString `db:"password_hash" json:"-"`
	Role             UserRole       `db:"role" json:"role"`
	TwoFactorEnabled bool           `db:"two_factor_enabled" json:"two_factor_enabled"`
	VerifiedAt       *time.Time     `db:"verified_at" json:"verified_at"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// NormalizeEmail is the canonical form used for every store lookup: emails
// are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationToken carries both verification channels for one email: the
// single-use link token and the numeric fallback code. At most one
// outstanding token exists per email; reissue supersedes the previous row.
type VerificationToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Token     string    `db:"token" json:"token"`
	Code      string    `db:"code" json:"code"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PasswordResetToken is a single-use, expiring token bound to one email.
type PasswordResetToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

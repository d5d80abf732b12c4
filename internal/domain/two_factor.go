package domain

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorConfirmation records that the second factor was satisfied for one
// identity. It is consumed (deleted) by the first sign-in that checks it, so
// a confirmation can never admit two sign-ins.
type TwoFactorConfirmation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

package repository

import (
	"context"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Repositories struct {
	Users                  Users
	VerificationTokens     VerificationTokens
	PasswordResetTokens    PasswordResetTokens
	TwoFactorConfirmations TwoFactorConfirmations
	RefreshSessions        RefreshSessions
	LoginAttempts          LoginAttempts
	ResendWindows          ResendWindows
	TwoFactorCodes         TwoFactorCodes
}

func NewRepositories(db *sqlx.DB, rdb redis.UniversalClient, authCfg config.AuthConfig) *Repositories {
	return &Repositories{
		Users:                  newUserRepository(db),
		VerificationTokens:     newVerificationTokenRepository(db),
		PasswordResetTokens:    newPasswordResetTokenRepository(db),
		TwoFactorConfirmations: newTwoFactorConfirmationRepository(db),
		RefreshSessions:        newRefreshSessionRepository(db),
		LoginAttempts:          newLoginAttemptsRepository(rdb, authCfg.FailureCounterTTL),
		ResendWindows:          newResendWindowRepository(rdb, authCfg.ResendInitialWindow, authCfg.ResendMaxWindow),
		TwoFactorCodes:         newTwoFactorCodeRepository(rdb),
	}
}

type Users interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

type VerificationTokens interface {
	GetByEmail(ctx context.Context, email string) (*domain.VerificationToken, error)
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	// Replace atomically deletes any outstanding token for the email and
	// inserts the new one.
	Replace(ctx context.Context, token *domain.VerificationToken) error
	// Delete reports whether this call removed the row, so concurrent
	// consumers cannot both observe a successful consumption.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type PasswordResetTokens interface {
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	Replace(ctx context.Context, token *domain.PasswordResetToken) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type TwoFactorConfirmations interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorConfirmation, error)
	Create(ctx context.Context, confirmation *domain.TwoFactorConfirmation) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type RefreshSessions interface {
	Create(ctx context.Context, session *domain.RefreshSession) error
	GetByToken(ctx context.Context, refreshToken uuid.UUID) (*domain.RefreshSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoginAttempts is the per-identity consecutive-failure counter and lock
// state backing the lockout policy.
type LoginAttempts interface {
	LockedUntil(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
	// RecordFailure increments and returns the consecutive-failure count.
	RecordFailure(ctx context.Context, userID uuid.UUID) (int64, error)
	Lock(ctx context.Context, userID uuid.UUID, duration time.Duration) error
	Reset(ctx context.Context, userID uuid.UUID) error
}

// ResendWindows tracks the authoritative server-side backoff window between
// verification resends for one email.
type ResendWindows interface {
	Active(ctx context.Context, email string) (time.Duration, bool, error)
	// Start opens a new wait window and doubles the one stored for the next
	// resend. It returns the window that is now in effect.
	Start(ctx context.Context, email string) (time.Duration, error)
}

// TwoFactorCodes stores the pending out-of-band second-factor code per
// identity.
type TwoFactorCodes interface {
	Set(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error
	// Consume returns the stored code and deletes it in one step.
	Consume(ctx context.Context, userID uuid.UUID) (string, error)
}

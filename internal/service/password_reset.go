package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/hash"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

type passwordResetService struct {
	userRepository               repository.Users
	passwordResetTokenRepository repository.PasswordResetTokens
	loginAttemptRepository       repository.LoginAttempts
	hasher                       hash.PasswordHasher
	issuer                       *tokenIssuer
	emails                       Emails
}

func newPasswordResetService(userRepository repository.Users,
	passwordResetTokenRepository repository.PasswordResetTokens,
	loginAttemptRepository repository.LoginAttempts,
	hasher hash.PasswordHasher,
	issuer *tokenIssuer,
	emails Emails,
) *passwordResetService {
	return &passwordResetService{
		userRepository:               userRepository,
		passwordResetTokenRepository: passwordResetTokenRepository,
		loginAttemptRepository:       loginAttemptRepository,
		hasher:                       hasher,
		issuer:                       issuer,
		emails:                       emails,
	}
}

// Request issues a reset token for the email. The answer is the same whether
// the account exists or not, so the endpoint cannot be used to probe for
// registered emails.
func (s *passwordResetService) Request(ctx context.Context, email string) error {
	normalized := domain.NormalizeEmail(email)

	user, err := s.userRepository.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user by email failed: %w", err)
	}

	// a provider-only account has no password to reset
	if !user.PasswordHash.Valid {
		return nil
	}

	token, err := s.issuer.issuePasswordReset(ctx, normalized)
	if err != nil {
		return fmt.Errorf("issue password reset token failed: %w", err)
	}

	if err := s.emails.EnqueuePasswordReset(ctx, token); err != nil {
		logger.Error("enqueue password reset email failed",
			zap.Error(err), zap.String("email", normalized))
	}

	return nil
}

// Confirm consumes a reset token and replaces the password. A successful
// reset also clears the failure counter and any standing lock, the owner
// has just proven control of the mailbox.
func (s *passwordResetService) Confirm(ctx context.Context, token, newPassword string) error {
	stored, err := s.passwordResetTokenRepository.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("get password reset token failed: %w", err)
	}

	if stored.Expired(time.Now()) {
		if _, err := s.passwordResetTokenRepository.Delete(ctx, stored.ID); err != nil {
			logger.Error("delete expired password reset token failed",
				zap.Error(err), zap.String("email", stored.Email))
		}
		return ErrTokenExpired
	}

	user, err := s.userRepository.GetByEmail(ctx, stored.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user by email failed: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}

	deleted, err := s.passwordResetTokenRepository.Delete(ctx, stored.ID)
	if err != nil {
		return fmt.Errorf("delete password reset token failed: %w", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}

	if err := s.userRepository.UpdatePasswordHash(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("update password hash failed: %w", err)
	}

	if err := s.loginAttemptRepository.Reset(ctx, user.ID); err != nil {
		logger.Error("reset failure counter failed",
			zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	return nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/google/uuid"
)

const verificationTokenLength = 32

// tokenIssuer mints the single-use email tokens. Issuing always supersedes:
// the store replaces any outstanding token for the email atomically, so at
// most one token per email is ever live.
type tokenIssuer struct {
	verificationTokens  repository.VerificationTokens
	passwordResetTokens repository.PasswordResetTokens
	otpGenerator        otp.Generator
	authConfig          config.AuthConfig
}

func newTokenIssuer(
	verificationTokens repository.VerificationTokens,
	passwordResetTokens repository.PasswordResetTokens,
	otpGenerator otp.Generator,
	authConfig config.AuthConfig,
) *tokenIssuer {
	return &tokenIssuer{
		verificationTokens:  verificationTokens,
		passwordResetTokens: passwordResetTokens,
		otpGenerator:        otpGenerator,
		authConfig:          authConfig,
	}
}

func (i *tokenIssuer) issueVerification(ctx context.Context, email string) (*domain.VerificationToken, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate token id failed: %w", err)
	}

	code, err := i.otpGenerator.RandomCode(i.authConfig.VerificationCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate verification code failed: %w", err)
	}

	now := time.Now()
	token := &domain.VerificationToken{
		ID:        id,
		Email:     domain.NormalizeEmail(email),
		Token:     i.otpGenerator.RandomSecret(verificationTokenLength),
		Code:      code,
		ExpiresAt: now.Add(i.authConfig.VerificationTokenTTL),
		CreatedAt: now,
	}

	if err := i.verificationTokens.Replace(ctx, token); err != nil {
		return nil, fmt.Errorf("replace verification token failed: %w", err)
	}

	return token, nil
}

func (i *tokenIssuer) issuePasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate token id failed: %w", err)
	}

	now := time.Now()
	token := &domain.PasswordResetToken{
		ID:        id,
		Email:     domain.NormalizeEmail(email),
		Token:     i.otpGenerator.RandomSecret(verificationTokenLength),
		ExpiresAt: now.Add(i.authConfig.PasswordResetTokenTTL),
		CreatedAt: now,
	}

	if err := i.passwordResetTokens.Replace(ctx, token); err != nil {
		return nil, fmt.Errorf("replace password reset token failed: %w", err)
	}

	return token, nil
}

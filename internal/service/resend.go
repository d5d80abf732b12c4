package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

// Resend reissues the verification token for an unverified identity. Every
// resend requires a solved captcha, and each one doubles the wait window
// before the next is allowed. The window is authoritative server side: a
// resend inside it fails with ErrResendThrottled regardless of what the
// client displays.
func (s *verificationService) Resend(ctx context.Context, email, captchaToken string) (time.Duration, error) {
	normalized := domain.NormalizeEmail(email)

	ok, err := s.captchaVerifier.Verify(ctx, captchaToken)
	if err != nil {
		return 0, fmt.Errorf("verify captcha failed: %w", err)
	}
	if !ok {
		return 0, ErrCaptchaRequired
	}

	user, err := s.userRepository.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get user by email failed: %w", err)
	}

	if user.Verified() {
		return 0, ErrAlreadyVerified
	}

	remaining, active, err := s.resendWindowRepository.Active(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("check resend window failed: %w", err)
	}
	if active {
		return remaining, ErrResendThrottled
	}

	token, err := s.issuer.issueVerification(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("issue verification token failed: %w", err)
	}

	window, err := s.resendWindowRepository.Start(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("start resend window failed: %w", err)
	}

	if err := s.emails.EnqueueVerification(ctx, token); err != nil {
		logger.Error("enqueue verification email failed",
			zap.Error(err), zap.String("email", normalized))
	}

	return window, nil
}

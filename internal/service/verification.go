package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/captcha"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

type verificationService struct {
	userRepository              repository.Users
	verificationTokenRepository repository.VerificationTokens
	resendWindowRepository      repository.ResendWindows
	captchaVerifier             captcha.Verifier
	issuer                      *tokenIssuer
	emails                      Emails
}

func newVerificationService(userRepository repository.Users,
	verificationTokenRepository repository.VerificationTokens,
	resendWindowRepository repository.ResendWindows,
	captchaVerifier captcha.Verifier,
	issuer *tokenIssuer,
	emails Emails,
) *verificationService {
	return &verificationService{
		userRepository:              userRepository,
		verificationTokenRepository: verificationTokenRepository,
		resendWindowRepository:      resendWindowRepository,
		captchaVerifier:             captchaVerifier,
		issuer:                      issuer,
		emails:                      emails,
	}
}

// VerifyByLink consumes a link token and marks its identity verified. The
// token is consumed first: of two concurrent attempts only one sees the
// delete succeed, the other gets ErrTokenNotFound.
func (s *verificationService) VerifyByLink(ctx context.Context, token string) error {
	stored, err := s.verificationTokenRepository.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("get verification token failed: %w", err)
	}

	return s.consume(ctx, stored)
}

// VerifyByCode is the fallback channel: the numeric code sent alongside the
// link, matched against the token carried in the same email. Requiring the
// token keeps the six digit code useless on its own.
func (s *verificationService) VerifyByCode(ctx context.Context, token, code string) error {
	stored, err := s.verificationTokenRepository.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("get verification token failed: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return ErrCodeMismatch
	}

	return s.consume(ctx, stored)
}

func (s *verificationService) consume(ctx context.Context, token *domain.VerificationToken) error {
	if token.Expired(time.Now()) {
		if _, err := s.verificationTokenRepository.Delete(ctx, token.ID); err != nil {
			logger.Error("delete expired verification token failed",
				zap.Error(err), zap.String("email", token.Email))
		}
		return ErrTokenExpired
	}

	user, err := s.userRepository.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user by email failed: %w", err)
	}

	deleted, err := s.verificationTokenRepository.Delete(ctx, token.ID)
	if err != nil {
		return fmt.Errorf("delete verification token failed: %w", err)
	}
	if !deleted {
		// lost the race to a concurrent consumption or a superseding reissue
		return ErrTokenNotFound
	}

	if err := s.userRepository.MarkVerified(ctx, user.ID, time.Now()); err != nil {
		return fmt.Errorf("mark user verified failed: %w", err)
	}

	return nil
}

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/logger"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type twoFactorService struct {
	userRepository                  repository.Users
	twoFactorConfirmationRepository repository.TwoFactorConfirmations
	twoFactorCodeRepository         repository.TwoFactorCodes
	otpGenerator                    otp.Generator
	emails                          Emails
	authConfig                      config.AuthConfig
}

func newTwoFactorService(userRepository repository.Users,
	twoFactorConfirmationRepository repository.TwoFactorConfirmations,
	twoFactorCodeRepository repository.TwoFactorCodes,
	otpGenerator otp.Generator,
	emails Emails,
	authConfig config.AuthConfig,
) *twoFactorService {
	return &twoFactorService{
		userRepository:                  userRepository,
		twoFactorConfirmationRepository: twoFactorConfirmationRepository,
		twoFactorCodeRepository:         twoFactorCodeRepository,
		otpGenerator:                    otpGenerator,
		emails:                          emails,
		authConfig:                      authConfig,
	}
}

// RequestChallenge mails a fresh second-factor code. Issuing replaces any
// pending code for the identity.
func (s *twoFactorService) RequestChallenge(ctx context.Context, email string) error {
	user, err := s.getTwoFactorUser(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.otpGenerator.RandomCode(s.authConfig.VerificationCodeLength)
	if err != nil {
		return fmt.Errorf("generate two factor code failed: %w", err)
	}

	if err := s.twoFactorCodeRepository.Set(ctx, user.ID, code, s.authConfig.TwoFactorCodeTTL); err != nil {
		return fmt.Errorf("store two factor code failed: %w", err)
	}

	if err := s.emails.EnqueueTwoFactorCode(ctx, user.Email, code); err != nil {
		logger.Error("enqueue two factor code email failed",
			zap.Error(err), zap.String("email", user.Email))
	}

	return nil
}

// ConfirmChallenge spends the pending code and records a single-use
// confirmation. The next password sign-in for the identity consumes the
// confirmation, exactly one sign-in gets through per confirmation.
func (s *twoFactorService) ConfirmChallenge(ctx context.Context, email, code string) error {
	user, err := s.getTwoFactorUser(ctx, email)
	if err != nil {
		return err
	}

	stored, err := s.twoFactorCodeRepository.Consume(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTwoFactorCodeMismatch
		}
		return fmt.Errorf("consume two factor code failed: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrTwoFactorCodeMismatch
	}

	confirmationID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate confirmation id failed: %w", err)
	}

	err = s.twoFactorConfirmationRepository.Create(ctx, &domain.TwoFactorConfirmation{
		ID:     confirmationID,
		UserID: user.ID,
	})
	if err != nil {
		// one unconsumed confirmation per identity, an existing one stands
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil
		}
		return fmt.Errorf("create two factor confirmation failed: %w", err)
	}

	return nil
}

func (s *twoFactorService) getTwoFactorUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepository.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}

	if !user.TwoFactorEnabled {
		return nil, ErrUserNotFound
	}

	return user, nil
}

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

type SignInInput struct {
	Email         string
	Password      string
	TwoFactorCode string
	UserAgent     string
	IP            string
}

// SignIn evaluates the password sign-in pipeline: lockout check before the
// password, then verification state, then the second factor gate. Every
// failure, credential mismatch or internal, leaves through the same minimum
// delay so response time does not say which check rejected the attempt.
func (s *userService) SignIn(ctx context.Context, input SignInInput) (*Tokens, error) {
	started := time.Now()

	tokens, err := s.authenticate(ctx, input)
	if err != nil {
		return nil, s.failSlow(started, err)
	}

	return tokens, nil
}

func (s *userService) authenticate(ctx context.Context, input SignInInput) (*Tokens, error) {
	email := domain.NormalizeEmail(input.Email)

	user, err := s.userRepository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// burn the compare anyway so unknown emails are not faster
			s.hasher.Compare(s.dummyHash, input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}

	if _, locked, err := s.loginAttemptRepository.LockedUntil(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("check lock state failed: %w", err)
	} else if locked {
		return nil, ErrAccountLocked
	}

	if !user.PasswordHash.Valid {
		// provider-only account, there is no password to be right
		s.hasher.Compare(s.dummyHash, input.Password)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Compare(user.PasswordHash.String, input.Password) {
		if err := s.recordFailure(ctx, user); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if !user.Verified() {
		// a correct password on an unverified account restarts the
		// verification flow instead of opening a session
		if token, err := s.issuer.issueVerification(ctx, email); err != nil {
			logger.Error("issue verification token failed",
				zap.Error(err), zap.String("email", email))
		} else if err := s.emails.EnqueueVerification(ctx, token); err != nil {
			logger.Error("enqueue verification email failed",
				zap.Error(err), zap.String("email", email))
		}
		return nil, ErrEmailNotVerified
	}

	if user.TwoFactorEnabled {
		if err := s.passTwoFactorGate(ctx, user, input.TwoFactorCode); err != nil {
			return nil, err
		}
	}

	if err := s.loginAttemptRepository.Reset(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("reset failure counter failed: %w", err)
	}

	return s.createSession(ctx, ComposeClaims(user, ProviderCredentials), input.UserAgent, input.IP)
}

// recordFailure bumps the consecutive-failure counter and locks the account
// when it crosses the threshold. The increment is atomic and returns the new
// count, so exactly one of any set of concurrent failures observes the
// crossing and sends the one lockout alert.
func (s *userService) recordFailure(ctx context.Context, user *domain.User) error {
	count, err := s.loginAttemptRepository.RecordFailure(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("record login failure failed: %w", err)
	}

	threshold := int64(s.authConfig.LockoutThreshold)
	if count < threshold {
		return nil
	}

	// lock on every count at or past the threshold: the counter can outlive
	// an expired lock when its TTL is configured longer than the lockout
	if err := s.loginAttemptRepository.Lock(ctx, user.ID, s.authConfig.LockoutDuration); err != nil {
		return fmt.Errorf("lock account failed: %w", err)
	}

	// the alert is tied to the crossing itself and never repeats
	if count != threshold {
		return nil
	}

	logger.Warn("account locked after repeated sign-in failures",
		zap.String("user_id", user.ID.String()),
		zap.Duration("duration", s.authConfig.LockoutDuration))

	if err := s.emails.EnqueueLockoutAlert(ctx, user.Email); err != nil {
		logger.Error("enqueue lockout alert failed",
			zap.Error(err), zap.String("email", user.Email))
	}

	return nil
}

// passTwoFactorGate admits the sign-in through the second factor. With a
// code in the request the pending challenge is consumed and compared. With
// no code an existing single-use confirmation admits it, otherwise a fresh
// challenge is issued and the caller is told a code is now required.
func (s *userService) passTwoFactorGate(ctx context.Context, user *domain.User, code string) error {
	if code != "" {
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

		return nil
	}

	confirmation, err := s.twoFactorConfirmationRepository.GetByUserID(ctx, user.ID)
	if err == nil {
		deleted, err := s.twoFactorConfirmationRepository.Delete(ctx, confirmation.ID)
		if err != nil {
			return fmt.Errorf("consume two factor confirmation failed: %w", err)
		}
		if deleted {
			return nil
		}
		// another sign-in spent it first, fall through to a new challenge
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get two factor confirmation failed: %w", err)
	}

	if err := s.issueTwoFactorChallenge(ctx, user); err != nil {
		return err
	}

	return ErrTwoFactorRequired
}

func (s *userService) issueTwoFactorChallenge(ctx context.Context, user *domain.User) error {
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

// failSlow pads a failure response out to the configured minimum so timing
// does not reveal which check rejected the attempt.
func (s *userService) failSlow(started time.Time, err error) error {
	if elapsed := time.Since(started); elapsed < s.authConfig.MinFailureDelay {
		time.Sleep(s.authConfig.MinFailureDelay - elapsed)
	}
	return err
}

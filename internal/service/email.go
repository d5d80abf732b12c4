package service

import (
	"context"
	"fmt"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/queue/client"
	"github.com/loopauth/backend/internal/queue/task"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

// EmailService enqueues delivery tasks. Delivery is best effort: a failed
// enqueue never rolls back the issuance that triggered it, callers log and
// carry on.
type EmailService struct {
	config  config.EmailConfig
	enabled bool
}

func newEmailService(config config.EmailConfig) *EmailService {
	return &EmailService{
		enabled: config.Enabled,
		config:  config,
	}
}

func (s *EmailService) enqueue(ctx context.Context, data task.SendEmail) error {
	if !s.enabled {
		logger.Debug("email disabled, skipping enqueue",
			zap.String("kind", string(data.Kind)),
			zap.String("email", data.Email))
		return nil
	}

	t, err := task.NewSendEmailTask(data)
	if err != nil {
		return fmt.Errorf("create send email task failed: %w", err)
	}

	if _, err := client.GetClient(ctx).EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("enqueue send email task failed: %w", err)
	}

	return nil
}

func (s *EmailService) EnqueueVerification(ctx context.Context, token *domain.VerificationToken) error {
	return s.enqueue(ctx, task.SendEmail{
		Email:            token.Email,
		Kind:             task.EmailKindVerification,
		VerificationLink: fmt.Sprintf("%s?token=%s", s.config.VerificationBaseURL, token.Token),
		VerificationCode: token.Code,
		ExpiresAt:        token.ExpiresAt.Unix(),
	})
}

func (s *EmailService) EnqueueTwoFactorCode(ctx context.Context, email, code string) error {
	return s.enqueue(ctx, task.SendEmail{
		Email:            email,
		Kind:             task.EmailKindTwoFactorCode,
		VerificationCode: code,
	})
}

func (s *EmailService) EnqueueLockoutAlert(ctx context.Context, email string) error {
	return s.enqueue(ctx, task.SendEmail{
		Email: email,
		Kind:  task.EmailKindLockoutAlert,
	})
}

func (s *EmailService) EnqueuePasswordReset(ctx context.Context, token *domain.PasswordResetToken) error {
	return s.enqueue(ctx, task.SendEmail{
		Email:     token.Email,
		Kind:      task.EmailKindPasswordReset,
		ResetLink: fmt.Sprintf("%s?token=%s", s.config.PasswordResetURL, token.Token),
	})
}

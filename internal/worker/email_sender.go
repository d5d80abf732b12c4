package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/queue/task"
	emailProvider "github.com/loopauth/backend/pkg/email"
)

type emailSender struct {
	sender emailProvider.Sender
	config config.EmailConfig
}

func newEmailSender(
	sender emailProvider.Sender,
	config config.EmailConfig,
) *emailSender {
	return &emailSender{
		sender: sender,
		config: config,
	}
}

type verificationEmailInput struct {
	VerificationLink string
	VerificationCode string
	ExpiresAt        string
}

type twoFactorEmailInput struct {
	Code string
}

type passwordResetEmailInput struct {
	ResetLink string
}

func (s *emailSender) SendEmail(ctx context.Context, data task.SendEmail) error {
	switch data.Kind {
	case task.EmailKindVerification:
		return s.sendVerificationEmail(data)
	case task.EmailKindTwoFactorCode:
		return s.sendTwoFactorCodeEmail(data)
	case task.EmailKindLockoutAlert:
		return s.sendLockoutAlertEmail(data)
	case task.EmailKindPasswordReset:
		return s.sendPasswordResetEmail(data)
	default:
		return fmt.Errorf("unknown email kind: %s", data.Kind)
	}
}

func (s *emailSender) sendVerificationEmail(data task.SendEmail) error {
	subject := "Verify your email"

	templateInput := verificationEmailInput{
		VerificationLink: data.VerificationLink,
		VerificationCode: data.VerificationCode,
		ExpiresAt:        time.Unix(data.ExpiresAt, 0).UTC().Format(time.RFC1123),
	}
	sendInput := emailProvider.SendEmailInput{Subject: subject, To: data.Email}

	if err := sendInput.GenerateBodyFromHTML(s.config.Templates.Verification, templateInput); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}

func (s *emailSender) sendTwoFactorCodeEmail(data task.SendEmail) error {
	subject := "Your sign-in code"

	templateInput := twoFactorEmailInput{Code: data.VerificationCode}
	sendInput := emailProvider.SendEmailInput{Subject: subject, To: data.Email}

	if err := sendInput.GenerateBodyFromHTML(s.config.Templates.TwoFactor, templateInput); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}

func (s *emailSender) sendLockoutAlertEmail(data task.SendEmail) error {
	subject := "Your account has been locked"

	sendInput := emailProvider.SendEmailInput{Subject: subject, To: data.Email}

	if err := sendInput.GenerateBodyFromHTML(s.config.Templates.LockoutAlert, struct{}{}); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}

func (s *emailSender) sendPasswordResetEmail(data task.SendEmail) error {
	subject := "Reset your password"

	templateInput := passwordResetEmailInput{ResetLink: data.ResetLink}
	sendInput := emailProvider.SendEmailInput{Subject: subject, To: data.Email}

	if err := sendInput.GenerateBodyFromHTML(s.config.Templates.PasswordReset, templateInput); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}

package task

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	SendEmailTaskName  = "sendEmailTask"
	SendEmailQueueName = "sendEmailQueue"
)

// EmailKind selects the template a queued email is rendered with.
type EmailKind string

const (
	EmailKindVerification  EmailKind = "verification"
	EmailKindTwoFactorCode EmailKind = "twoFactorCode"
	EmailKindLockoutAlert  EmailKind = "lockoutAlert"
	EmailKindPasswordReset EmailKind = "passwordReset"
)

type SendEmail struct {
	Email string    `json:"email"`
	Kind  EmailKind `json:"kind"`

	VerificationLink string `json:"verification_link,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
	ResetLink        string `json:"reset_link,omitempty"`
	ExpiresAt        int64  `json:"expires_at,omitempty"`
}

func NewSendEmailTask(data SendEmail) (*asynq.Task, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		SendEmailTaskName,
		payload,
		asynq.MaxRetry(5),
		asynq.Queue(SendEmailQueueName),
	), nil
}

package worker

import (
	"context"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/queue/task"
	emailProvider "github.com/loopauth/backend/pkg/email"
)

type Workers struct {
	EmailSender EmailSender
}

type Deps struct {
	EmailProvider emailProvider.Sender
	Config        *config.Config
}

type EmailSender interface {
	SendEmail(ctx context.Context, data task.SendEmail) error
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		EmailSender: newEmailSender(deps.EmailProvider, deps.Config.Email),
	}
}

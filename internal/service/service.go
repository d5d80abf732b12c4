package service

import (
	"context"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/oauth"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/auth"
	"github.com/loopauth/backend/pkg/captcha"
	"github.com/loopauth/backend/pkg/hash"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/google/uuid"
)

type Services struct {
	Users          Users
	Verification   Verification
	TwoFactor      TwoFactor
	PasswordResets PasswordResets
	Emails         Emails
}

type Deps struct {
	Config       *config.Config
	Hasher       hash.PasswordHasher
	TokenManager auth.TokenManager
	OtpGenerator otp.Generator
	Captcha      captcha.Verifier
	Repos        *repository.Repositories
	OAuthClient  *oauth.Client
}

func NewServices(deps Deps) *Services {
	issuer := newTokenIssuer(
		deps.Repos.VerificationTokens,
		deps.Repos.PasswordResetTokens,
		deps.OtpGenerator,
		deps.Config.Auth,
	)
	emails := newEmailService(deps.Config.Email)

	return &Services{
		Users: newUserService(deps.Repos.Users,
			deps.Repos.RefreshSessions,
			deps.Repos.TwoFactorConfirmations,
			deps.Repos.TwoFactorCodes,
			deps.Repos.LoginAttempts,
			deps.Hasher,
			deps.TokenManager,
			deps.OtpGenerator,
			deps.OAuthClient,
			issuer,
			emails,
			deps.Config.Auth,
		),
		Verification: newVerificationService(deps.Repos.Users,
			deps.Repos.VerificationTokens,
			deps.Repos.ResendWindows,
			deps.Captcha,
			issuer,
			emails,
		),
		TwoFactor: newTwoFactorService(deps.Repos.Users,
			deps.Repos.TwoFactorConfirmations,
			deps.Repos.TwoFactorCodes,
			deps.OtpGenerator,
			emails,
			deps.Config.Auth,
		),
		PasswordResets: newPasswordResetService(deps.Repos.Users,
			deps.Repos.PasswordResetTokens,
			deps.Repos.LoginAttempts,
			deps.Hasher,
			issuer,
			emails,
		),
		Emails: emails,
	}
}

type Users interface {
	SignUp(ctx context.Context, input SignUpInput) error
	SignIn(ctx context.Context, input SignInInput) (*Tokens, error)
	SignInWithProvider(ctx context.Context, input ProviderSignInInput) (*Tokens, error)
	ProviderAuthURL(provider, state string) (string, error)
	Refresh(ctx context.Context, input RefreshInput) (*Tokens, error)
	GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetTwoFactorEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error
}

type Verification interface {
	VerifyByLink(ctx context.Context, token string) error
	VerifyByCode(ctx context.Context, token, code string) error
	// Resend reports the wait window now in effect; on ErrResendThrottled it
	// is the remaining wait instead.
	Resend(ctx context.Context, email, captchaToken string) (time.Duration, error)
}

type TwoFactor interface {
	RequestChallenge(ctx context.Context, email string) error
	ConfirmChallenge(ctx context.Context, email, code string) error
}

type PasswordResets interface {
	Request(ctx context.Context, email string) error
	Confirm(ctx context.Context, token, newPassword string) error
}

type Emails interface {
	EnqueueVerification(ctx context.Context, token *domain.VerificationToken) error
	EnqueueTwoFactorCode(ctx context.Context, email, code string) error
	EnqueueLockoutAlert(ctx context.Context, email string) error
	EnqueuePasswordReset(ctx context.Context, token *domain.PasswordResetToken) error
}

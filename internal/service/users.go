package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/oauth"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/pkg/auth"
	"github.com/loopauth/backend/pkg/hash"
	"github.com/loopauth/backend/pkg/logger"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProviderCredentials names the password sign-in channel in session claims
// and refresh sessions, next to the OAuth provider names.
const ProviderCredentials = "credentials"

type userService struct {
	userRepository                  repository.Users
	refreshSessionRepository        repository.RefreshSessions
	twoFactorConfirmationRepository repository.TwoFactorConfirmations
	twoFactorCodeRepository         repository.TwoFactorCodes
	loginAttemptRepository          repository.LoginAttempts
	hasher                          hash.PasswordHasher
	tokenManager                    auth.TokenManager
	otpGenerator                    otp.Generator
	oauthClient                     *oauth.Client
	issuer                          *tokenIssuer
	emails                          Emails
	authConfig                      config.AuthConfig

	// hash of a throwaway password, compared against when no real hash
	// exists so the work factor is paid on every failure path
	dummyHash string
}

func newUserService(userRepository repository.Users,
	refreshSessionRepository repository.RefreshSessions,
	twoFactorConfirmationRepository repository.TwoFactorConfirmations,
	twoFactorCodeRepository repository.TwoFactorCodes,
	loginAttemptRepository repository.LoginAttempts,
	hasher hash.PasswordHasher,
	tokenManager auth.TokenManager,
	otpGenerator otp.Generator,
	oauthClient *oauth.Client,
	issuer *tokenIssuer,
	emails Emails,
	authConfig config.AuthConfig,
) *userService {
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Error("generate dummy hash failed", zap.Error(err))
	}

	return &userService{
		userRepository:                  userRepository,
		refreshSessionRepository:        refreshSessionRepository,
		twoFactorConfirmationRepository: twoFactorConfirmationRepository,
		twoFactorCodeRepository:         twoFactorCodeRepository,
		loginAttemptRepository:          loginAttemptRepository,
		hasher:                          hasher,
		tokenManager:                    tokenManager,
		otpGenerator:                    otpGenerator,
		oauthClient:                     oauthClient,
		issuer:                          issuer,
		emails:                          emails,
		authConfig:                      authConfig,
		dummyHash:                       dummyHash,
	}
}

type Tokens struct {
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken uuid.UUID
	RefreshTTL   time.Duration
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// SignUp registers an unverified identity and issues its first verification
// token. The first issuance is exempt from the captcha gate, only resends
// require one.
func (s *userService) SignUp(ctx context.Context, input SignUpInput) error {
	email := domain.NormalizeEmail(input.Email)

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate user id failed: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Name:         input.Name,
		Email:        email,
		PasswordHash: sql.NullString{String: passwordHash, Valid: true},
		Role:         domain.RoleUser,
	}

	if err := s.userRepository.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return ErrUserAlreadyExist
		}
		return fmt.Errorf("create user failed: %w", err)
	}

	token, err := s.issuer.issueVerification(ctx, email)
	if err != nil {
		return fmt.Errorf("issue verification token failed: %w", err)
	}

	if err := s.emails.EnqueueVerification(ctx, token); err != nil {
		logger.Error("enqueue verification email failed",
			zap.Error(err), zap.String("email", email))
	}

	return nil
}

func (s *userService) GetOneByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepository.GetOneByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id failed: %w", err)
	}

	return user, nil
}

func (s *userService) SetTwoFactorEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	if err := s.userRepository.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set two factor enabled failed: %w", err)
	}

	return nil
}

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
	IP           string
	Patch        *domain.SessionClaimsPatch
}

// Refresh rotates a refresh session and re-derives session claims from the
// stored user, then overlays the optional patch. A field present in the
// patch wins even when empty, an absent field keeps the freshly composed
// value.
func (s *userService) Refresh(ctx context.Context, input RefreshInput) (*Tokens, error) {
	refreshToken, err := s.tokenManager.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.refreshSessionRepository.GetByToken(ctx, *refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get refresh session failed: %w", err)
	}

	if err := s.refreshSessionRepository.Delete(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("delete refresh session failed: %w", err)
	}

	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	user, err := s.userRepository.GetOneByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id failed: %w", err)
	}

	claims := ApplyClaimsPatch(ComposeClaims(user, session.Provider), input.Patch)

	return s.createSession(ctx, claims, input.UserAgent, input.IP)
}

func (s *userService) createSession(ctx context.Context, claims domain.SessionClaims, userAgent, userIP string) (*Tokens, error) {
	var (
		res Tokens
		err error
	)

	res.AccessToken, res.AccessTTL, err = s.tokenManager.NewJWT(claims)
	if err != nil {
		return nil, fmt.Errorf("generate access token failed: %w", err)
	}

	res.RefreshToken, res.RefreshTTL, err = s.tokenManager.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token failed: %w", err)
	}

	refreshSessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate refresh session id failed: %w", err)
	}
	refreshSession := &domain.RefreshSession{
		ID:           refreshSessionID,
		UserID:       claims.UserID,
		RefreshToken: res.RefreshToken,
		Provider:     claims.Provider,
		UserAgent:    userAgent,
		IP:           userIP,
		ExpiresIn:    time.Now().Add(res.RefreshTTL),
	}

	if err := s.refreshSessionRepository.Create(ctx, refreshSession); err != nil {
		return nil, fmt.Errorf("create refresh session failed: %w", err)
	}

	return &res, nil
}

func (s *userService) ProviderAuthURL(provider, state string) (string, error) {
	return s.oauthClient.AuthorizationURL(provider, state)
}

type ProviderSignInInput struct {
	Provider  string
	Code      string
	UserAgent string
	IP        string
}

// SignInWithProvider completes the OAuth code flow. A provider-asserted
// email counts as verified: a new account is created already verified, and
// an existing unverified account is marked verified on first provider
// sign-in. Provider sign-ins bypass the password lockout and the second
// factor gate, both guard the password channel only.
func (s *userService) SignInWithProvider(ctx context.Context, input ProviderSignInInput) (*Tokens, error) {
	tokenResp, err := s.oauthClient.Exchange(ctx, input.Provider, input.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange code for token failed: %w", err)
	}

	profile, err := s.oauthClient.FetchProfile(ctx, input.Provider, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch provider profile failed: %w", err)
	}

	if profile.Email == "" {
		return nil, ErrProviderEmailMissing
	}
	email := domain.NormalizeEmail(profile.Email)

	user, err := s.userRepository.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}

	now := time.Now()

	if user == nil {
		userID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate user id failed: %w", err)
		}

		user = &domain.User{
			ID:         userID,
			Name:       profile.Name,
			Email:      email,
			Role:       domain.RoleUser,
			VerifiedAt: &now,
		}

		if err := s.userRepository.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user failed: %w", err)
		}
	} else if !user.Verified() {
		if err := s.userRepository.MarkVerified(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("mark user verified failed: %w", err)
		}
		user.VerifiedAt = &now
	}

	return s.createSession(ctx, ComposeClaims(user, input.Provider), input.UserAgent, input.IP)
}


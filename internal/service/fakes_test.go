package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/oauth"
	"github.com/loopauth/backend/pkg/auth"
	"github.com/loopauth/backend/pkg/hash"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	getByEmailErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]*domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEntry
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) GetOneByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.VerifiedAt == nil {
		u.VerifiedAt = &at
	}
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash.String = passwordHash
	u.PasswordHash.Valid = true
	return nil
}

func (f *fakeUsers) SetTwoFactorEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.TwoFactorEnabled = enabled
	return nil
}

type fakeVerificationTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.VerificationToken
}

func newFakeVerificationTokens() *fakeVerificationTokens {
	return &fakeVerificationTokens{tokens: map[uuid.UUID]*domain.VerificationToken{}}
}

func (f *fakeVerificationTokens) GetByEmail(_ context.Context, email string) (*domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Email == email {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVerificationTokens) GetByToken(_ context.Context, token string) (*domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVerificationTokens) Replace(_ context.Context, token *domain.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tokens {
		if t.Email == token.Email {
			delete(f.tokens, id)
		}
	}
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeVerificationTokens) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return false, nil
	}
	delete(f.tokens, id)
	return true, nil
}

type fakePasswordResetTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.PasswordResetToken
}

func newFakePasswordResetTokens() *fakePasswordResetTokens {
	return &fakePasswordResetTokens{tokens: map[uuid.UUID]*domain.PasswordResetToken{}}
}

func (f *fakePasswordResetTokens) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePasswordResetTokens) Replace(_ context.Context, token *domain.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tokens {
		if t.Email == token.Email {
			delete(f.tokens, id)
		}
	}
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakePasswordResetTokens) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return false, nil
	}
	delete(f.tokens, id)
	return true, nil
}

type fakeTwoFactorConfirmations struct {
	mu            sync.Mutex
	confirmations map[uuid.UUID]*domain.TwoFactorConfirmation
}

func newFakeTwoFactorConfirmations() *fakeTwoFactorConfirmations {
	return &fakeTwoFactorConfirmations{confirmations: map[uuid.UUID]*domain.TwoFactorConfirmation{}}
}

func (f *fakeTwoFactorConfirmations) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.TwoFactorConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.confirmations {
		if c.UserID == userID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTwoFactorConfirmations) Create(_ context.Context, confirmation *domain.TwoFactorConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.confirmations {
		if c.UserID == confirmation.UserID {
			return domain.ErrDuplicateEntry
		}
	}
	clone := *confirmation
	f.confirmations[confirmation.ID] = &clone
	return nil
}

func (f *fakeTwoFactorConfirmations) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.confirmations[id]; !ok {
		return false, nil
	}
	delete(f.confirmations, id)
	return true, nil
}

type fakeRefreshSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.RefreshSession
}

func newFakeRefreshSessions() *fakeRefreshSessions {
	return &fakeRefreshSessions{sessions: map[uuid.UUID]*domain.RefreshSession{}}
}

func (f *fakeRefreshSessions) Create(_ context.Context, session *domain.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeRefreshSessions) GetByToken(_ context.Context, refreshToken uuid.UUID) (*domain.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RefreshToken == refreshToken {
			clone := *s
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRefreshSessions) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

type fakeLoginAttempts struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
	locks  map[uuid.UUID]time.Time
}

func newFakeLoginAttempts() *fakeLoginAttempts {
	return &fakeLoginAttempts{
		counts: map[uuid.UUID]int64{},
		locks:  map[uuid.UUID]time.Time{},
	}
}

func (f *fakeLoginAttempts) LockedUntil(_ context.Context, userID uuid.UUID) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.locks[userID]
	if !ok || time.Now().After(until) {
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (f *fakeLoginAttempts) RecordFailure(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return f.counts[userID], nil
}

func (f *fakeLoginAttempts) Lock(_ context.Context, userID uuid.UUID, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks[userID] = time.Now().Add(duration)
	return nil
}

func (f *fakeLoginAttempts) Reset(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, userID)
	delete(f.locks, userID)
	return nil
}

type fakeResendWindows struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	until   map[string]time.Time
	next    map[string]time.Duration
}

func newFakeResendWindows(initial, max time.Duration) *fakeResendWindows {
	return &fakeResendWindows{
		initial: initial,
		max:     max,
		until:   map[string]time.Time{},
		next:    map[string]time.Duration{},
	}
}

func (f *fakeResendWindows) Active(_ context.Context, email string) (time.Duration, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.until[email]
	remaining := time.Until(until)
	if !ok || remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

func (f *fakeResendWindows) Start(_ context.Context, email string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	window, ok := f.next[email]
	if !ok {
		window = f.initial
	}
	if window > f.max {
		window = f.max
	}
	f.until[email] = time.Now().Add(window)
	doubled := window * 2
	if doubled > f.max {
		doubled = f.max
	}
	f.next[email] = doubled
	return window, nil
}

// expire ends the active wait window without touching the stored backoff.
func (f *fakeResendWindows) expire(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.until, email)
}

type fakeTwoFactorCodes struct {
	mu    sync.Mutex
	codes map[uuid.UUID]string
}

func newFakeTwoFactorCodes() *fakeTwoFactorCodes {
	return &fakeTwoFactorCodes{codes: map[uuid.UUID]string{}}
}

func (f *fakeTwoFactorCodes) Set(_ context.Context, userID uuid.UUID, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[userID] = code
	return nil
}

func (f *fakeTwoFactorCodes) Consume(_ context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(f.codes, userID)
	return code, nil
}

type sentEmail struct {
	kind  string
	email string
	code  string
	token *domain.VerificationToken
	reset *domain.PasswordResetToken
}

type fakeEmails struct {
	mu   sync.Mutex
	sent []sentEmail
}

func newFakeEmails() *fakeEmails {
	return &fakeEmails{}
}

func (f *fakeEmails) EnqueueVerification(_ context.Context, token *domain.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *token
	f.sent = append(f.sent, sentEmail{kind: "verification", email: token.Email, code: token.Code, token: &clone})
	return nil
}

func (f *fakeEmails) EnqueueTwoFactorCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "twoFactorCode", email: email, code: code})
	return nil
}

func (f *fakeEmails) EnqueueLockoutAlert(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "lockoutAlert", email: email})
	return nil
}

func (f *fakeEmails) EnqueuePasswordReset(_ context.Context, token *domain.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *token
	f.sent = append(f.sent, sentEmail{kind: "passwordReset", email: token.Email, reset: &clone})
	return nil
}

func (f *fakeEmails) byKind(kind string) []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEmail
	for _, s := range f.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type fakeCaptcha struct {
	ok bool
}

func (f *fakeCaptcha) Verify(_ context.Context, _ string) (bool, error) {
	return f.ok, nil
}

type testEnv struct {
	users         *fakeUsers
	tokens        *fakeVerificationTokens
	resets        *fakePasswordResetTokens
	confirmations *fakeTwoFactorConfirmations
	sessions      *fakeRefreshSessions
	attempts      *fakeLoginAttempts
	windows       *fakeResendWindows
	codes         *fakeTwoFactorCodes
	emails        *fakeEmails
	captcha       *fakeCaptcha

	hasher       hash.PasswordHasher
	tokenManager auth.TokenManager
	authConfig   config.AuthConfig

	userService          *userService
	verificationService  *verificationService
	twoFactorService     *twoFactorService
	passwordResetService *passwordResetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	authConfig := config.AuthConfig{
		BcryptCost:             4,
		VerificationTokenTTL:   time.Hour,
		VerificationCodeLength: 6,
		PasswordResetTokenTTL:  time.Hour,
		ResendInitialWindow:    2 * time.Minute,
		ResendMaxWindow:        8 * time.Minute,
		LockoutThreshold:       3,
		LockoutDuration:        time.Minute,
		FailureCounterTTL:      time.Minute,
		TwoFactorCodeTTL:       5 * time.Minute,
	}

	tokenManager, err := auth.NewManager(config.JWTConfig{
		SigningKey:      "test-signing-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	env := &testEnv{
		users:         newFakeUsers(),
		tokens:        newFakeVerificationTokens(),
		resets:        newFakePasswordResetTokens(),
		confirmations: newFakeTwoFactorConfirmations(),
		sessions:      newFakeRefreshSessions(),
		attempts:      newFakeLoginAttempts(),
		windows:       newFakeResendWindows(authConfig.ResendInitialWindow, authConfig.ResendMaxWindow),
		codes:         newFakeTwoFactorCodes(),
		emails:        newFakeEmails(),
		captcha:       &fakeCaptcha{ok: true},
		hasher:        hash.NewBcryptHasher(authConfig.BcryptCost),
		tokenManager:  tokenManager,
		authConfig:    authConfig,
	}

	otpGenerator := otp.NewGOTPGenerator()
	issuer := newTokenIssuer(env.tokens, env.resets, otpGenerator, authConfig)
	oauthClient := oauth.NewClient(config.OAuthConfig{RedirectBase: "http://localhost/oauth"})

	env.userService = newUserService(env.users, env.sessions, env.confirmations,
		env.codes, env.attempts, env.hasher, tokenManager, otpGenerator,
		oauthClient, issuer, env.emails, authConfig)
	env.verificationService = newVerificationService(env.users, env.tokens,
		env.windows, env.captcha, issuer, env.emails)
	env.twoFactorService = newTwoFactorService(env.users, env.confirmations,
		env.codes, otpGenerator, env.emails, authConfig)
	env.passwordResetService = newPasswordResetService(env.users, env.resets,
		env.attempts, env.hasher, issuer, env.emails)

	return env
}

func (e *testEnv) createUser(t *testing.T, email, password string, verified bool) *domain.User {
	t.Helper()

	require.NoError(t, e.userService.SignUp(context.Background(), SignUpInput{
		Name:     "Test User",
		Email:    email,
		Password: password,
	}))

	user, err := e.users.GetByEmail(context.Background(), domain.NormalizeEmail(email))
	require.NoError(t, err)

	if verified {
		require.NoError(t, e.users.MarkVerified(context.Background(), user.ID, time.Now()))
		user, err = e.users.GetOneByID(context.Background(), user.ID)
		require.NoError(t, err)
	}

	return user
}

package service

import "errors"

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrUserNotFound     = errors.New("user not found")

	ErrTokenNotFound   = errors.New("token not found")
	ErrTokenExpired    = errors.New("token expired")
	ErrCodeMismatch    = errors.New("verification code mismatch")
	ErrAlreadyVerified = errors.New("email already verified")
	ErrResendThrottled = errors.New("resend throttled")
	ErrCaptchaRequired = errors.New("human verification required")

	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccountLocked         = errors.New("account locked")
	ErrTwoFactorRequired     = errors.New("two factor code required")
	ErrTwoFactorCodeMismatch = errors.New("two factor code mismatch")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrProviderEmailMissing = errors.New("provider returned no email")
)

package v1

// Errors
const (
	UnknownErrorCode    = 0
	UnknownErrorMessage = "unknown error"

	UserAlreadyExistsCode        = 1001
	UserAlreadyExistsMessage     = "user already exists"
	UserNotFoundCode             = 1002
	UserNotFoundMessage          = "user not found"
	InvalidCredentialsCode       = 1003
	InvalidCredentialsMessage    = "invalid credentials"
	EmailNotVerifiedCode         = 1004
	EmailNotVerifiedMessage      = "email not verified, confirmation email sent"
	AccountLockedCode            = 1005
	AccountLockedMessage         = "account temporarily locked"
	TwoFactorRequiredCode        = 1006
	TwoFactorRequiredMessage     = "two factor code sent"
	TwoFactorCodeMismatchCode    = 1007
	TwoFactorCodeMismatchMessage = "invalid two factor code"

	TokenNotFoundCode               = 2001
	TokenNotFoundMessage            = "token not found"
	TokenExpiredCode                = 2002
	TokenExpiredMessage             = "token expired"
	VerificationCodeMismatchCode    = 2003
	VerificationCodeMismatchMessage = "invalid verification code"
	AlreadyVerifiedCode             = 2004
	AlreadyVerifiedMessage          = "email already verified"
	ResendThrottledCode             = 2005
	ResendThrottledMessage          = "resend not allowed yet"
	CaptchaRequiredCode             = 2006
	CaptchaRequiredMessage          = "human verification failed"

	RefreshTokenNotFoundCode    = 3001
	RefreshTokenNotFoundMessage = "refresh token not found"
	SessionExpiredCode          = 3002
	SessionExpiredMessage       = "session expired"
)

type ErrorCode int
type ErrorMessage string

type ErrorStruct struct {
	ErrorCode    `json:"error_code"`
	ErrorMessage `json:"error_message"`
} // @name ErrorStruct

type ValidationErrorStruct struct {
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Errors       []ValidationError `json:"validation_errors"`
}

type ValidationError struct {
	FieldKey     string `json:"field_key"`
	ErrorMessage string `json:"error_message"`
}

func getErrorStruct(code ErrorCode) *ErrorStruct {
	errorStruct := &ErrorStruct{
		ErrorCode:    UnknownErrorCode,
		ErrorMessage: UnknownErrorMessage,
	}

	messages := map[ErrorCode]ErrorMessage{
		UserAlreadyExistsCode:        UserAlreadyExistsMessage,
		UserNotFoundCode:             UserNotFoundMessage,
		InvalidCredentialsCode:       InvalidCredentialsMessage,
		EmailNotVerifiedCode:         EmailNotVerifiedMessage,
		AccountLockedCode:            AccountLockedMessage,
		TwoFactorRequiredCode:        TwoFactorRequiredMessage,
		TwoFactorCodeMismatchCode:    TwoFactorCodeMismatchMessage,
		TokenNotFoundCode:            TokenNotFoundMessage,
		TokenExpiredCode:             TokenExpiredMessage,
		VerificationCodeMismatchCode: VerificationCodeMismatchMessage,
		AlreadyVerifiedCode:          AlreadyVerifiedMessage,
		ResendThrottledCode:          ResendThrottledMessage,
		CaptchaRequiredCode:          CaptchaRequiredMessage,
		RefreshTokenNotFoundCode:     RefreshTokenNotFoundMessage,
		SessionExpiredCode:           SessionExpiredMessage,
	}

	if message, ok := messages[code]; ok {
		errorStruct.ErrorCode = code
		errorStruct.ErrorMessage = message
	}

	return errorStruct
}

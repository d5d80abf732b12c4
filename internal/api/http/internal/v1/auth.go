package v1

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/service"
	"github.com/loopauth/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	refreshTokenCookie = "refresh_token"
	oauthStateCookie   = "oauth_state"
)

func (h *Handler) initAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")

	auth.POST("/sign-up", h.signUp)
	auth.POST("/sign-in", h.signIn)
	auth.POST("/refresh", h.refresh)

	auth.GET("/verify/:token", h.verifyByLink)
	auth.POST("/verify-code", h.verifyByCode)
	auth.POST("/resend", h.resendVerification)

	auth.POST("/2fa/request", h.requestTwoFactorCode)
	auth.POST("/2fa/confirm", h.confirmTwoFactorCode)

	auth.POST("/password-reset/request", h.requestPasswordReset)
	auth.POST("/password-reset/confirm", h.confirmPasswordReset)

	oauth := auth.Group("/oauth")
	oauth.GET("/:provider/login", h.oauthLogin)
	oauth.GET("/:provider/callback", h.oauthCallback)
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	err := h.services.Users.SignUp(c.Request.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExist) {
			errorResponse(c, http.StatusConflict, UserAlreadyExistsCode)
			return
		}
		logger.Error("sign up failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		return
	}

	c.Status(http.StatusCreated)
}

type signInRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"two_factor_code" binding:"omitempty,verificationcode"`
}

type sessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken uuid.UUID `json:"refresh_token"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	tokens, err := h.services.Users.SignIn(c.Request.Context(), service.SignInInput{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		UserAgent:     c.Request.UserAgent(),
		IP:            c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			errorResponse(c, http.StatusUnauthorized, InvalidCredentialsCode)
		case errors.Is(err, service.ErrAccountLocked):
			errorResponse(c, http.StatusLocked, AccountLockedCode)
		case errors.Is(err, service.ErrEmailNotVerified):
			errorResponse(c, http.StatusForbidden, EmailNotVerifiedCode)
		case errors.Is(err, service.ErrTwoFactorRequired):
			errorResponse(c, http.StatusForbidden, TwoFactorRequiredCode)
		case errors.Is(err, service.ErrTwoFactorCodeMismatch):
			errorResponse(c, http.StatusUnauthorized, TwoFactorCodeMismatchCode)
		default:
			logger.Error("sign in failed", zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		}
		return
	}

	h.sessionResponse(c, tokens)
}

func (h *Handler) sessionResponse(c *gin.Context, tokens *service.Tokens) {
	c.SetCookie(refreshTokenCookie, tokens.RefreshToken.String(),
		int(tokens.RefreshTTL.Seconds()), "/api/v1/auth", "", false, true)

	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"omitempty,uuid"`

	Name             *string `json:"name" binding:"omitempty,max=100"`
	Email            *string `json:"email" binding:"omitempty,email"`
	Role             *string `json:"role" binding:"omitempty,oneof=user admin"`
	TwoFactorEnabled *bool   `json:"two_factor_enabled"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	// an empty body means cookie-only refresh with no claims patch
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		validationErrorResponse(c, err)
		return
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		cookie, err := c.Cookie(refreshTokenCookie)
		if err != nil {
			errorResponse(c, http.StatusUnauthorized, RefreshTokenNotFoundCode)
			return
		}
		refreshToken = cookie
	}

	var patch *domain.SessionClaimsPatch
	if req.Name != nil || req.Email != nil || req.Role != nil || req.TwoFactorEnabled != nil {
		patch = &domain.SessionClaimsPatch{
			Name:             req.Name,
			Email:            req.Email,
			TwoFactorEnabled: req.TwoFactorEnabled,
		}
		if req.Role != nil {
			role := domain.UserRole(*req.Role)
			patch.Role = &role
		}
	}

	tokens, err := h.services.Users.Refresh(c.Request.Context(), service.RefreshInput{
		RefreshToken: refreshToken,
		UserAgent:    c.Request.UserAgent(),
		IP:           c.ClientIP(),
		Patch:        patch,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrUserNotFound):
			errorResponse(c, http.StatusUnauthorized, RefreshTokenNotFoundCode)
		case errors.Is(err, service.ErrSessionExpired):
			errorResponse(c, http.StatusUnauthorized, SessionExpiredCode)
		default:
			logger.Error("refresh failed", zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		}
		return
	}

	h.sessionResponse(c, tokens)
}

func (h *Handler) verifyByLink(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		errorResponse(c, http.StatusBadRequest, TokenNotFoundCode)
		return
	}

	if err := h.services.Verification.VerifyByLink(c.Request.Context(), token); err != nil {
		h.verificationErrorResponse(c, err)
		return
	}

	c.Status(http.StatusOK)
}

type verifyCodeRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required,verificationcode"`
}

func (h *Handler) verifyByCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.Verification.VerifyByCode(c.Request.Context(), req.Token, req.Code); err != nil {
		h.verificationErrorResponse(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (h *Handler) verificationErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		errorResponse(c, http.StatusBadRequest, TokenNotFoundCode)
	case errors.Is(err, service.ErrTokenExpired):
		errorResponse(c, http.StatusBadRequest, TokenExpiredCode)
	case errors.Is(err, service.ErrCodeMismatch):
		errorResponse(c, http.StatusBadRequest, VerificationCodeMismatchCode)
	case errors.Is(err, service.ErrUserNotFound):
		errorResponse(c, http.StatusBadRequest, UserNotFoundCode)
	default:
		logger.Error("verification failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
	}
}

type resendRequest struct {
	Email        string `json:"email" binding:"required,email"`
	CaptchaToken string `json:"captcha_token"`
}

type resendResponse struct {
	RetryAfterSeconds int64 `json:"retry_after_seconds"`
}

func (h *Handler) resendVerification(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	window, err := h.services.Verification.Resend(c.Request.Context(), req.Email, req.CaptchaToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaRequired):
			errorResponse(c, http.StatusForbidden, CaptchaRequiredCode)
		case errors.Is(err, service.ErrUserNotFound):
			errorResponse(c, http.StatusBadRequest, UserNotFoundCode)
		case errors.Is(err, service.ErrAlreadyVerified):
			errorResponse(c, http.StatusBadRequest, AlreadyVerifiedCode)
		case errors.Is(err, service.ErrResendThrottled):
			c.Header("Retry-After", strconv.FormatInt(int64(window.Seconds()), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, getErrorStruct(ResendThrottledCode))
		default:
			logger.Error("resend verification failed", zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		}
		return
	}

	c.JSON(http.StatusOK, resendResponse{RetryAfterSeconds: int64(window.Seconds())})
}

type twoFactorRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) requestTwoFactorCode(c *gin.Context) {
	var req twoFactorRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.TwoFactor.RequestChallenge(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			errorResponse(c, http.StatusBadRequest, UserNotFoundCode)
			return
		}
		logger.Error("two factor request failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		return
	}

	c.Status(http.StatusOK)
}

type twoFactorConfirmRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,verificationcode"`
}

func (h *Handler) confirmTwoFactorCode(c *gin.Context) {
	var req twoFactorConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.TwoFactor.ConfirmChallenge(c.Request.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			errorResponse(c, http.StatusBadRequest, UserNotFoundCode)
		case errors.Is(err, service.ErrTwoFactorCodeMismatch):
			errorResponse(c, http.StatusUnauthorized, TwoFactorCodeMismatchCode)
		default:
			logger.Error("two factor confirm failed", zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		}
		return
	}

	c.Status(http.StatusOK)
}

type passwordResetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) requestPasswordReset(c *gin.Context) {
	var req passwordResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.PasswordResets.Request(c.Request.Context(), req.Email); err != nil {
		logger.Error("password reset request failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		return
	}

	// the answer never says whether the email is registered
	c.Status(http.StatusOK)
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (h *Handler) confirmPasswordReset(c *gin.Context) {
	var req passwordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.PasswordResets.Confirm(c.Request.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			errorResponse(c, http.StatusBadRequest, TokenNotFoundCode)
		case errors.Is(err, service.ErrTokenExpired):
			errorResponse(c, http.StatusBadRequest, TokenExpiredCode)
		case errors.Is(err, service.ErrUserNotFound):
			errorResponse(c, http.StatusBadRequest, UserNotFoundCode)
		default:
			logger.Error("password reset confirm failed", zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		}
		return
	}

	c.Status(http.StatusOK)
}

func (h *Handler) oauthLogin(c *gin.Context) {
	provider := c.Param("provider")

	state := generateState()
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)

	authURL, err := h.services.Users.ProviderAuthURL(provider, state)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, UnknownErrorCode)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) oauthCallback(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	if code == "" {
		errorResponse(c, http.StatusBadRequest, UnknownErrorCode)
		return
	}

	savedState, err := c.Cookie(oauthStateCookie)
	if err != nil || savedState == "" || savedState != state {
		logger.Warn("oauth state mismatch", zap.String("provider", provider))
		errorResponse(c, http.StatusBadRequest, UnknownErrorCode)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	tokens, err := h.services.Users.SignInWithProvider(c.Request.Context(), service.ProviderSignInInput{
		Provider:  provider,
		Code:      code,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		logger.Error("oauth sign in failed", zap.Error(err), zap.String("provider", provider))
		errorResponse(c, http.StatusBadRequest, UnknownErrorCode)
		return
	}

	h.sessionResponse(c, tokens)
}

func generateState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/internal/service"
	"github.com/loopauth/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) initUsersRoutes(api *gin.RouterGroup) {
	users := api.Group("/users", h.userIdentityMiddleware)

	users.GET("/me", h.getMe)
	users.PUT("/me/two-factor", h.setTwoFactor)
}

type userResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Role             domain.UserRole `json:"role"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	VerifiedAt       *time.Time      `json:"verified_at"`
}

func (h *Handler) getMe(c *gin.Context) {
	claims, err := h.getUserClaims(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, UnknownErrorCode)
		return
	}

	user, err := h.services.Users.GetOneByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			errorResponse(c, http.StatusNotFound, UserNotFoundCode)
			return
		}
		logger.Error("get user failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
		VerifiedAt:       user.VerifiedAt,
	})
}

type setTwoFactorRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) setTwoFactor(c *gin.Context) {
	claims, err := h.getUserClaims(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, UnknownErrorCode)
		return
	}

	var req setTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	if err := h.services.Users.SetTwoFactorEnabled(c.Request.Context(), claims.UserID, *req.Enabled); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			errorResponse(c, http.StatusNotFound, UserNotFoundCode)
			return
		}
		logger.Error("set two factor failed", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, UnknownErrorCode)
		return
	}

	c.Status(http.StatusOK)
}

package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/loopauth/backend/internal/domain"
	"github.com/loopauth/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	authorizationHeader = "Authorization"
	userCtx             = "userClaims"
)

func (h *Handler) userIdentityMiddleware(c *gin.Context) {
	claims, err := h.parseAuthHeader(c)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			logger.Error("parse auth header failed", zap.Error(err))
		}
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(userCtx, claims)
}

func (h *Handler) parseAuthHeader(c *gin.Context) (*domain.SessionClaims, error) {
	header := c.GetHeader(authorizationHeader)
	if header == "" {
		return nil, errors.New("empty auth header")
	}

	headerParts := strings.Split(header, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return nil, errors.New("invalid auth header")
	}

	if len(headerParts[1]) == 0 {
		return nil, errors.New("token is empty")
	}

	return h.tokenManager.Parse(headerParts[1])
}

func (h *Handler) getUserClaims(c *gin.Context) (*domain.SessionClaims, error) {
	value, ok := c.Get(userCtx)
	if !ok {
		return nil, errors.New("user claims not found")
	}

	claims, ok := value.(*domain.SessionClaims)
	if !ok {
		return nil, errors.New("user claims have unexpected type")
	}

	return claims, nil
}

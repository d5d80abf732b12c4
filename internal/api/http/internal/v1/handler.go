package v1

import (
	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/service"
	"github.com/loopauth/backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services     *service.Services
	tokenManager auth.TokenManager
	config       *config.Config
}

func NewHandler(
	services *service.Services,
	tokenManager auth.TokenManager,
	config *config.Config,
) *Handler {
	return &Handler{
		services:     services,
		tokenManager: tokenManager,
		config:       config,
	}
}

func (h *Handler) Init(api *gin.RouterGroup) {
	v1 := api.Group("v1")

	h.initAuthRoutes(v1)
	h.initUsersRoutes(v1)
}

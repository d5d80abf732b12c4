package apiHttp

import (
	"time"

	ginzap "github.com/gin-contrib/zap"

	"github.com/loopauth/backend/pkg/auth"
	"github.com/loopauth/backend/pkg/limiter"
	"github.com/loopauth/backend/pkg/logger"
	"github.com/loopauth/backend/pkg/validator"

	internalV1 "github.com/loopauth/backend/internal/api/http/internal/v1"
	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services     *service.Services
	tokenManager auth.TokenManager
	config       *config.Config
}

func NewHandlers(
	services *service.Services,
	tokenManager auth.TokenManager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		services:     services,
		tokenManager: tokenManager,
		config:       cfg,
	}
}

func (h *Handler) Init(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	validator.RegisterGinValidator()

	router.Use(
		ginzap.Ginzap(logger.Logger(), time.RFC3339, true),
		limiter.Limit(cfg.Limiter.RPS, cfg.Limiter.Burst, cfg.Limiter.TTL),
		corsMiddleware(cfg.HttpServer.CORSOrigins),
	)
	router.Use(ginzap.RecoveryWithZap(logger.Logger(), true))

	h.initAPI(router)

	return router
}

func (h *Handler) initAPI(router *gin.Engine) {
	internalHandlersV1 := internalV1.NewHandler(h.services, h.tokenManager, h.config)
	api := router.Group("/api")
	internalHandlersV1.Init(api)
}

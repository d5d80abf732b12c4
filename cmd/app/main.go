package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiHttp "github.com/loopauth/backend/internal/api/http"
	"github.com/loopauth/backend/internal/cache"
	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/internal/db"
	"github.com/loopauth/backend/internal/oauth"
	"github.com/loopauth/backend/internal/queue/asynqserver"
	"github.com/loopauth/backend/internal/queue/client"
	"github.com/loopauth/backend/internal/repository"
	"github.com/loopauth/backend/internal/server"
	"github.com/loopauth/backend/internal/service"
	"github.com/loopauth/backend/internal/worker"
	"github.com/loopauth/backend/pkg/auth"
	"github.com/loopauth/backend/pkg/captcha"
	"github.com/loopauth/backend/pkg/email/smtp"
	"github.com/loopauth/backend/pkg/hash"
	"github.com/loopauth/backend/pkg/logger"
	"github.com/loopauth/backend/pkg/otp"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	appLogger := logger.Setup(cfg.Env, cfg.LogLevel)
	defer appLogger.Sync() //nolint:errcheck

	logger.Info("starting auth backend", zap.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	dbMySQL, err := db.New(cfg.Database)
	if err != nil {
		logger.Error("mysql connect problem", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := dbMySQL.Close(); err != nil {
			logger.Error("error when closing mysql", zap.Error(err))
		}
	}()
	logger.Info("mysql connection done")

	rdb, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		logger.Error("redis connect problem", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error when closing redis", zap.Error(err))
		}
	}()
	logger.Info("redis connection done")

	asynqClient := asynq.NewClient(asynqserver.RedisOptions(cfg.Cache))
	defer asynqClient.Close()
	client.SetClient(asynqClient)

	hasher := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokenManager, err := auth.NewManager(cfg.Auth.JWT)
	if err != nil {
		logger.Error("auth manager creation failed", zap.Error(err))
		os.Exit(1)
	}

	otpGenerator := otp.NewGOTPGenerator()
	captchaVerifier := captcha.NewClient(cfg.Captcha)
	oauthClient := oauth.NewClient(cfg.OAuth)

	emailSender, err := smtp.NewSMTPSender(cfg.SMTP.From, cfg.SMTP.Pass, cfg.SMTP.Host, cfg.SMTP.Port)
	if err != nil {
		logger.Error("smtp sender creation failed", zap.Error(err))
		os.Exit(1)
	}

	workers := worker.NewWorkers(worker.Deps{
		EmailProvider: emailSender,
		Config:        cfg,
	})

	asynqSrv, asynqMux := asynqserver.New(cfg.Cache, workers)
	go func() {
		if err := asynqSrv.Run(asynqMux); err != nil {
			logger.Error("asynq server run failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	repos := repository.NewRepositories(dbMySQL, rdb, cfg.Auth)
	services := service.NewServices(service.Deps{
		Config:       cfg,
		Hasher:       hasher,
		TokenManager: tokenManager,
		OtpGenerator: otpGenerator,
		Captcha:      captchaVerifier,
		Repos:        repos,
		OAuthClient:  oauthClient,
	})
	handlers := apiHttp.NewHandlers(services, tokenManager, cfg)

	srv := server.NewServer(cfg, handlers.Init(cfg))
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error occurred while running http server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.HttpServer.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	const timeout = 5 * time.Second

	ctx, shutdown := context.WithTimeout(context.Background(), timeout)
	defer shutdown()

	asynqSrv.Shutdown()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("failed to stop server", zap.Error(err))
	}

	logger.Info("app stopped")
}

package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/dormmanager/backend/internal/api/http"
	"github.com/dormmanager/backend/internal/api/http/handlers"
	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/cache"
	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/notification"
	"github.com/dormmanager/backend/internal/observability"
	"github.com/dormmanager/backend/internal/repository"
	"github.com/dormmanager/backend/internal/service"
)

// services is the wired application graph.
type services struct {
	tokens       *auth.TokenManager
	verification *service.VerificationService
	registration *service.RegistrationService
	auth         *service.AuthService
	accounts     *service.AccountService
	mail         *service.MailService
	dispatcher   notification.Dispatcher
	memory       *notification.MemoryDispatcher
}

func newServices(cfg *config.Config, db repository.DB, rdb redis.Cmdable, logger *zap.Logger) (*services, error) {
	timeout := cfg.Redis.OperationTimeout()
	keys := cfg.Cache

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenValidity(), cache.NewRevocationStore(rdb, keys, timeout))
	if err != nil {
		return nil, err
	}

	mail := service.NewMailService(service.NewLogMailer(logger), cfg.Notification, logger)

	var (
		dispatcher notification.Dispatcher
		memory     *notification.MemoryDispatcher
	)
	switch cfg.Notification.Transport {
	case config.TransportMemory:
		memory = notification.NewMemoryDispatcher(cfg.Notification.MemoryQueueSize, logger)
		mail.RegisterHandlers(memory)
		dispatcher = memory
	default:
		dispatcher = notification.NewStreamDispatcher(rdb, cfg.Notification.Stream, cfg.Notification.StreamMaxLen, timeout)
	}

	accounts := repository.NewAccountRepository(db)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	codes := cache.NewCodeStore(rdb, keys, timeout)

	return &services{
		tokens: tokens,
		verification: service.NewVerificationService(service.VerificationDependencies{
			Limiter:    cache.NewRateLimiter(rdb, keys, timeout),
			Codes:      codes,
			Dispatcher: dispatcher,
		}, cfg.Verification, logger),
		registration: service.NewRegistrationService(service.RegistrationDependencies{
			Codes:    codes,
			Accounts: accounts,
			Hasher:   hasher,
		}, logger),
		auth: service.NewAuthService(service.AuthDependencies{
			Accounts: accounts,
			Hasher:   hasher,
			Tokens:   tokens,
		}, logger),
		accounts:   service.NewAccountService(accounts),
		mail:       mail,
		dispatcher: dispatcher,
		memory:     memory,
	}, nil
}

func newHTTPApp(cfg *config.Config, svc *services, logger *zap.Logger, reg *prometheus.Registry, pingers map[string]handlers.Pinger) *fiber.App {
	metrics := observability.NewMetrics(reg)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ErrorHandler:          httptransport.ErrorHandler,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers),
		Auth:     handlers.NewAuthHandler(svc.verification, svc.registration, svc.auth, metrics),
		Accounts: handlers.NewAccountHandler(svc.accounts),
		Gateway:  auth.NewGateway(svc.tokens, logger),
		Gatherer: reg,
	})
	return app
}

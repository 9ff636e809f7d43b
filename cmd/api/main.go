package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/backoffice-auth/internal/api/http"
	"github.com/spec-kit/backoffice-auth/internal/api/http/handlers"
	"github.com/spec-kit/backoffice-auth/internal/auth"
	"github.com/spec-kit/backoffice-auth/internal/config"
	"github.com/spec-kit/backoffice-auth/internal/events"
	"github.com/spec-kit/backoffice-auth/internal/observability"
	"github.com/spec-kit/backoffice-auth/internal/persistence"
	"github.com/spec-kit/backoffice-auth/internal/repository"
	"github.com/spec-kit/backoffice-auth/internal/service"
	"github.com/spec-kit/backoffice-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.UsesDefaultSecret() {
		if cfg.App.IsDevelopment() {
			logger.Warn("AUTH_JWT_SECRET uses the built-in default; override it outside development")
		} else {
			logger.Error("AUTH_JWT_SECRET uses the built-in default in a non-development environment")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	userRepo := repository.NewCachedUserRepository(
		repository.NewUserRepository(pg.PoolHandle()),
		redis.Client,
		cfg.Redis.UserCacheTTL(),
		logger,
	)

	clock := auth.SystemClock{}
	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTLDays, clock)
	gate := auth.NewGate(tokens, auth.NewLegacyCodec(clock), userRepo, auth.GateOptions{
		LegacyEnabled: cfg.Auth.LegacyTokensEnabled,
		Logger:        logger,
		Audit:         dispatcher,
		Clock:         clock,
	})

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(gate),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("legacy_tokens", cfg.Auth.LegacyTokensEnabled))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

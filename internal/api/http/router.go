package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/backoffice-auth/internal/api/http/handlers"
	"github.com/spec-kit/backoffice-auth/internal/auth"
	"github.com/spec-kit/backoffice-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/me", cfg.Auth.Me)

	signedOnly := protected.Group("", auth.RequireSigned())
	signedOnly.Post("/token/refresh", cfg.Auth.Refresh)
	signedOnly.Post("/password/change", cfg.Auth.ChangePassword)
}

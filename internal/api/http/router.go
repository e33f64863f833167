package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dormmanager/backend/internal/api/http/handlers"
	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Accounts *handlers.AccountHandler
	Gateway  *auth.Gateway
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes. The gateway runs for every /api route;
// only /api/auth is reachable anonymously and /api/admin needs ROLE_admin.
// Guards are mounted on a non-empty prefix since group middleware applies to
// the whole prefix.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", cfg.Gateway.Handle)

	authGroup := api.Group("/auth")
	authGroup.Get("/ask-code", cfg.Auth.AskCode)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	account := api.Group("/account", auth.RequireAuthenticated())
	account.Get("/me", cfg.Accounts.Me)

	admin := api.Group("/admin", auth.RequireAuthority(domain.Authority(domain.RoleAdmin)))
	admin.Get("/accounts/:login", cfg.Accounts.Lookup)
}

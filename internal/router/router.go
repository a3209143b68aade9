package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-checker-api/internal/config"
	"github.com/noah-isme/gema-checker-api/internal/handler"
	"github.com/noah-isme/gema-checker-api/internal/middleware"
	"github.com/noah-isme/gema-checker-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RunTestsHandler *handler.RunTestsHandler
	EnableMetrics   bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))

	// Versioned alias for health & headers
	v1 := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	v1.Get("/health", handler.HealthCheck(cfg))

	if deps.EnableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	if deps.RunTestsHandler != nil {
		api := app.Group("/api")
		deps.RunTestsHandler.Register(api, middleware.RateLimit("run-tests", cfg.RateLimitMax, cfg.RateLimitWindow))
	}
}

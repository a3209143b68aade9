package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-checker-api/internal/config"
	"github.com/noah-isme/gema-checker-api/internal/utils"
)

// HealthMessage is reported by the health endpoint while the service is serving.
const HealthMessage = "Rust learning backend is up"

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Service     string    `json:"service,omitempty"`
	Environment string    `json:"environment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Message:     HealthMessage,
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Timestamp:   time.Now().UTC(),
		}

		return utils.SendJSON(c, fiber.StatusOK, payload)
	}
}

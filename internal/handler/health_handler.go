package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edutrilha/classe-api/internal/config"
	"github.com/edutrilha/classe-api/internal/utils"
)

// HealthResponse reports liveness information for the API.
type HealthResponse struct {
	Status    string    `json:"status"`
	AppName   string    `json:"app_name"`
	Env       string    `json:"env"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck returns the health endpoint handler.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthResponse{
			Status:    "ok",
			AppName:   cfg.AppName,
			Env:       cfg.AppEnv,
			Timestamp: time.Now().UTC(),
		})
	}
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-checker-api/internal/dto"
	"github.com/noah-isme/gema-checker-api/internal/service"
	"github.com/noah-isme/gema-checker-api/internal/utils"
)

// RunTestsHandler exposes the static check endpoint.
type RunTestsHandler struct {
	service service.RunTestsService
	logger  zerolog.Logger
}

// NewRunTestsHandler constructs the handler.
func NewRunTestsHandler(service service.RunTestsService, logger zerolog.Logger) *RunTestsHandler {
	return &RunTestsHandler{
		service: service,
		logger:  logger.With().Str("component", "run_tests_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *RunTestsHandler) Register(router fiber.Router, middlewares ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, middlewares...), h.run)
	router.Post("/run-tests", handlers...)
}

func (h *RunTestsHandler) run(c *fiber.Ctx) error {
	var payload dto.RunTestsRequest
	if err := c.BodyParser(&payload); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("run-tests body rejected")
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Run(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, payload, err)
	}

	return utils.SendJSON(c, fiber.StatusOK, response)
}

func (h *RunTestsHandler) handleError(c *fiber.Ctx, payload dto.RunTestsRequest, err error) error {
	logger := requestLogger(h.logger, c)

	var missing *service.MissingFieldError
	switch {
	case errors.As(err, &missing):
		logger.Warn().
			Str("field", missing.Field).
			Str("exercise_id", payload.ExerciseID).
			Msg("run-tests failure")
		return utils.SendError(c, fiber.StatusBadRequest, missing.Error())
	default:
		logger.Error().Err(err).Msg("run-tests failure")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

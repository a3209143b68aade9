package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the body returned for rejected requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SendJSON writes the payload as-is using the provided HTTP status code.
func SendJSON(c *fiber.Ctx, status int, payload interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(payload)
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   message,
	})
}

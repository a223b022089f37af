package http

import "github.com/gofiber/fiber/v2"

// APIError is the JSON shape of every error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *fiber.Ctx, status int, code, message string) error {
	e := APIError{Status: status, Code: code, Message: message}
	if rid, ok := c.Locals("requestid").(string); ok {
		e.RequestID = rid
	}
	return c.Status(status).JSON(e)
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return respondError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

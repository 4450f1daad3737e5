package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`            // bad_request, not_found, upstream_unavailable, internal_error
	Message   string `json:"message"`         // Human-readable message
	Field     string `json:"field,omitempty"` // Offending input field for validation errors
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errUpstream returns a 502 error for a failed call to a backing service.
func errUpstream(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadGateway, "upstream_unavailable", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errValidation returns a 400 error naming the offending field.
func errValidation(c *fiber.Ctx, v *domain.ValidationError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusBadRequest).JSON(APIError{
		Status:    fiber.StatusBadRequest,
		Code:      "bad_request",
		Message:   v.Message,
		Field:     v.Field,
		RequestID: reqID,
	})
}

// writeDomainError maps core errors onto HTTP statuses. notFoundMsg is shown
// for domain.ErrNotFound.
func writeDomainError(c *fiber.Ctx, err error, notFoundMsg string) error {
	var v *domain.ValidationError
	switch {
	case errors.As(err, &v):
		return errValidation(c, v)
	case domain.IsNotFound(err):
		return errNotFound(c, notFoundMsg)
	case domain.IsTransport(err):
		LoggerFromCtx(c.UserContext()).Warn("upstream failure", slog.String("error", err.Error()))
		return errUpstream(c, "upstream service unavailable")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("error", err.Error()))
		return errInternal(c, "internal error")
	}
}

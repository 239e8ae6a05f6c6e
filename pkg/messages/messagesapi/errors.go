package messagesapi

import (
	"errors"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

var apiErrors = errx.NewRegistry("MESSAGES_API")

var (
	ErrInvalidPayload  = apiErrors.Register("INVALID_PAYLOAD", errx.TypeValidation, 400, "Request payload is invalid")
	ErrRunNotFound     = apiErrors.Register("RUN_NOT_FOUND", errx.TypeNotFound, 404, "Warm-up run not found")
	ErrJobsUnavailable = apiErrors.Register("JOBS_UNAVAILABLE", errx.TypeConfiguration, 503, "Background jobs are not configured")
	ErrEnqueueFailed   = apiErrors.Register("ENQUEUE_FAILED", errx.TypeExternal, 502, "Job could not be enqueued")
)

// ErrorHandler writes errx errors as their JSON response and fiber errors
// with their own status. Anything else is an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errx.HTTPErrorResponse{
			Error:  fe.Message,
			Code:   "FIBER_ERROR",
			Type:   string(errx.TypeInternal),
			Status: fe.Code,
		})
	}
	status, body := errx.Response(err)
	return c.Status(status).JSON(body)
}

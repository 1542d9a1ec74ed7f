package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the stable per-request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestID ensures each request has a request identifier for tracing and
// audit correlation, generating one when the client did not supply it.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Set(RequestIDHeader, id)
		}
		c.Locals(RequestIDHeader, id)
		return c.Next()
	}
}

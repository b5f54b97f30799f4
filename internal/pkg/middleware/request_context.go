package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// RequestIDLocalKey matches the requestid middleware's default ContextKey.
const RequestIDLocalKey = "requestid"

// RequestContextMiddleware moves the request id assigned by the requestid
// middleware into the user context so handlers log it via logger.FromContext.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(RequestIDLocalKey).(string)
		if id == "" {
			id = c.Get(fiber.HeaderXRequestID)
		}
		c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// ProcessorTokenMiddleware guards the internal processor endpoint. An empty
// configured token rejects every request.
func ProcessorTokenMiddleware(token string) fiber.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(c *fiber.Ctx) error {
		given := extractProcessorToken(c)
		if len(expected) == 0 || given == "" || subtle.ConstantTimeCompare([]byte(given), expected) != 1 {
			logger.FromContext(c.UserContext()).Warn("processor call rejected: bad token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

func extractProcessorToken(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get(dispatch.ProcessorTokenHeader))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

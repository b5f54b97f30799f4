package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// OriginAllowListMiddleware rejects requests whose Origin header is not in
// allowed. An empty list lets everything through; with a list configured a
// missing Origin is rejected too.
func OriginAllowListMiddleware(allowed []string) fiber.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			set[o] = struct{}{}
		}
	}
	return func(c *fiber.Ctx) error {
		if len(set) == 0 {
			return c.Next()
		}
		origin := normalizeOrigin(c.Get(fiber.HeaderOrigin))
		if _, ok := set[origin]; !ok {
			logger.FromContext(c.UserContext()).Info("origin not allowed", zapOrigin(origin))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "origin_not_allowed"})
		}
		return c.Next()
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
}

func zapOrigin(origin string) zap.Field {
	if origin == "" {
		return zap.String("origin", "<none>")
	}
	return zap.String("origin", origin)
}

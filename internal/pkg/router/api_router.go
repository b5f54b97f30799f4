package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/middleware"
)

// WebhookPaths maps each receiver path to its platform.
var WebhookPaths = map[string]string{
	"/platform-a": config.PlatformA,
	"/platform-b": config.PlatformB,
	"/platform-c": config.PlatformC,
	"/platform-d": config.PlatformD,
}

// ApiRouter mounts the machine facing endpoints: webhook receivers and the
// internal processor.
type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Platforms retry on anything but 2xx, so the limit is generous.
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{
		Max:        600,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}))
	for path, platform := range WebhookPaths {
		webhooks.All(path, h.deps.Webhooks.HandleWebhook(platform))
	}

	internal := app.Group("/internal", middleware.ProcessorTokenMiddleware(h.deps.Config.ProcessorToken))
	internal.Post("/events/process", h.deps.Processor.HandleProcess)
	if h.deps.Stats != nil {
		internal.Get("/stats", h.deps.Stats.HandleStats)
	}
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ManuelReschke/TrackFox/app/controllers"
	"github.com/ManuelReschke/TrackFox/internal/pkg/middleware"
)

// HttpRouter mounts the browser facing pixel and the operational endpoints.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", h.healthz)

	if h.deps.Config.MetricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{h.deps.Config.MetricsUser: h.deps.Config.MetricsPassword},
		}), monitor.New(monitor.Config{Title: "TrackFox Metrics"}))
	}

	corsOrigins := "*"
	if len(h.deps.Config.PixelAllowedOrigins) > 0 {
		corsOrigins = strings.Join(h.deps.Config.PixelAllowedOrigins, ",")
	}
	app.Use("/pixel", cors.New(cors.Config{AllowOrigins: corsOrigins, AllowMethods: "GET,POST,OPTIONS"}))

	pixel := []fiber.Handler{
		middleware.OriginAllowListMiddleware(h.deps.Config.PixelAllowedOrigins),
		limiter.New(limiter.Config{
			Max:        120,
			Expiration: time.Minute,
			Storage:    h.deps.LimiterStorage,
			// throttled callers still get the pixel, nothing is recorded
			LimitReached: controllers.SendPixel,
		}),
		h.deps.Pixel.HandlePixel,
	}
	app.Get("/pixel", pixel...)
	app.Post("/pixel", pixel...)
}

func (h HttpRouter) healthz(c *fiber.Ctx) error {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

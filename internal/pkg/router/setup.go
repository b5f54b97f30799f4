package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrackFox/app/controllers"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the controllers and settings the routers mount.
type Dependencies struct {
	Config    *config.Config
	Webhooks  *controllers.WebhookController
	Processor *controllers.ProcessorController
	Pixel     *controllers.PixelController
	// Stats is optional.
	Stats *controllers.StatsController
	// LimiterStorage backs the rate limiters; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// Ready reports whether the service can take traffic, nil means always.
	Ready func() error
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/controllers"
	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/cache"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/database"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/env"
	"github.com/ManuelReschke/TrackFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TrackFox/internal/pkg/middleware"
	"github.com/ManuelReschke/TrackFox/internal/pkg/pixel"
	"github.com/ManuelReschke/TrackFox/internal/pkg/processor"
	"github.com/ManuelReschke/TrackFox/internal/pkg/rabbitmq"
	"github.com/ManuelReschke/TrackFox/internal/pkg/reporting"
	"github.com/ManuelReschke/TrackFox/internal/pkg/router"
)

// webhook bodies are small JSON documents
const bodyLimit = 1 << 20

func main() {
	env.SetupEnvFile()
	cfg := config.Load()

	log, err := logger.Setup(cfg.IsDev())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	app, shutdown := NewApplication(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)
	log.Info("listening", zap.String("addr", addr), zap.String("dispatch", cfg.DispatchDriver))
	if err := app.Listen(addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
	shutdown()
}

// NewApplication wires storage, the phase two dispatcher and the routes.
// The returned func stops background work and closes connections.
func NewApplication(cfg *config.Config) (*fiber.App, func()) {
	log := zap.L()

	db := database.SetupDatabase(cfg.Database)
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()
	redisClient := cache.SetupCache(cfg.Cache)

	sink, err := reporting.FromConfig(context.Background(), cfg.ClickHouse)
	if err != nil {
		log.Warn("reporting disabled", zap.Error(err))
		sink = reporting.Nop{}
	}
	proc := processor.NewFromConfig(repos, cfg, sink)

	var queue *jobqueue.Queue
	var publisher *rabbitmq.Publisher
	var dispatcher dispatch.Dispatcher
	switch cfg.DispatchDriver {
	case config.DispatchAMQP:
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatal("connect rabbitmq", zap.Error(err))
		}
		dispatcher = publisher
	case config.DispatchHTTP:
		dispatcher = dispatch.NewHTTP(cfg.ProcessorURL, cfg.ProcessorToken, 30*time.Second)
	default:
		queue = jobqueue.NewQueue(redisClient, cfg.JobQueueWorkers, proc.HandleTask)
		dispatcher = queue
	}

	manager := jobqueue.NewManager(queue, repos.RawEvent, dispatcher, jobqueue.ReprocessConfig{
		Interval:    cfg.ReprocessInterval,
		MinAge:      cfg.ReprocessMinAge,
		MaxAttempts: cfg.ReprocessMaxAttempts,
	})
	jobqueue.SetManager(manager)
	manager.Start()

	app := fiber.New(fiber.Config{
		AppName:   "TrackFox",
		BodyLimit: bodyLimit,
	})
	app.Use(recover.New(), requestid.New(), middleware.RequestContextMiddleware(), fiberlogger.New())

	outcomes := counter.New(redisClient)
	router.InstallRouter(app, router.Dependencies{
		Config:         cfg,
		Webhooks:       controllers.NewWebhookController(repos.RawEvent, dispatcher, cfg).WithCounter(outcomes),
		Processor:      controllers.NewProcessorController(proc),
		Pixel:          controllers.NewPixelController(pixel.NewService(repos.LastTouch, cfg.PixelTouchTTL)),
		Stats:          controllers.NewStatsController(outcomes, manager),
		LimiterStorage: cache.LimiterStorage(cfg.Cache),
		Ready:          func() error { return ping(db) },
	})

	return app, func() {
		manager.Stop()
		if publisher != nil {
			publisher.Close()
		}
		if err := sink.Close(); err != nil {
			log.Warn("close reporting sink", zap.Error(err))
		}
		if err := redisClient.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

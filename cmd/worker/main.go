// Command worker consumes raw event tasks from RabbitMQ and runs the
// processor on them. It is the phase two runner for DISPATCH_DRIVER=amqp.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/database"
	"github.com/ManuelReschke/TrackFox/internal/pkg/env"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/processor"
	"github.com/ManuelReschke/TrackFox/internal/pkg/rabbitmq"
	"github.com/ManuelReschke/TrackFox/internal/pkg/reporting"
)

func main() {
	env.SetupEnvFile()
	cfg := config.Load()

	log, err := logger.Setup(cfg.IsDev())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.SetupDatabase(cfg.Database)
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	sink, err := reporting.FromConfig(ctx, cfg.ClickHouse)
	if err != nil {
		log.Warn("reporting disabled", zap.Error(err))
		sink = reporting.Nop{}
	}
	defer func() { _ = sink.Close() }()

	proc := processor.NewFromConfig(repos, cfg, sink)

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
	if err != nil {
		log.Fatal("connect rabbitmq", zap.Error(err))
	}
	defer consumer.Close()

	log.Info("worker consuming", zap.String("queue", cfg.RabbitMQ.EventQueue))
	if err := consumer.Consume(ctx, proc.HandleTask); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("worker stopped")
}

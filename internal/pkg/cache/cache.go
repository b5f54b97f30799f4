package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

var client *redis.Client

// SetupCache connects the shared Redis client used by the job queue. A
// failed ping is logged, not fatal: webhooks still persist raw events and
// the reprocess sweeper picks them up once Redis is back.
func SetupCache(cfg config.CacheConfig) *redis.Client {
	client = redis.NewClient(&redis.Options{
		Addr:     Addr(cfg),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		zap.L().Warn("could not connect to cache", zap.String("addr", Addr(cfg)), zap.Error(err))
	} else {
		zap.L().Info("connected to cache", zap.String("addr", Addr(cfg)), zap.String("ping", pong))
	}
	return client
}

// GetClient returns the client created by SetupCache, nil before that.
func GetClient() *redis.Client {
	return client
}

func Addr(cfg config.CacheConfig) string {
	return fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
}

// LimiterStorage returns fiber storage on Redis database 1 for the rate
// limiters, so counters are shared between instances. It returns nil, which
// makes the limiter fall back to in-memory counters, when Redis does not
// answer: the storage constructor panics on a failed connection.
func LimiterStorage(cfg config.CacheConfig) fiber.Storage {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("rate limiter uses in-memory storage", zap.Error(err))
		return nil
	}

	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: 1,
		Reset:    false,
	})
}

package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// TaskHandler processes one task. Errors classified as terminal by
// apperror are acknowledged. Anything else is nacked without requeue: the
// raw event stays pending in the database and the reprocess sweeper sends
// it again after REPROCESS_MIN_AGE, up to REPROCESS_MAX_ATTEMPTS.
type TaskHandler func(ctx context.Context, task dispatch.Task) error

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
}

func NewConsumer(cfg config.RabbitMQConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{conn: conn, channel: channel, config: cfg}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Consume blocks until ctx is done or the channel closes.
func (c *Consumer) Consume(ctx context.Context, handler TaskHandler) error {
	if err := declareQueue(c.channel, c.config.EventQueue); err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		c.config.EventQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("consuming raw events", zap.String("queue", c.config.EventQueue))

	// closing the channel ends the delivery range below
	go func() {
		<-ctx.Done()
		c.channel.Close()
	}()

	for msg := range msgs {
		switch decide(ctx, msg.Body, handler) {
		case ack:
			_ = msg.Ack(false)
		default:
			_ = msg.Nack(false, false)
		}
	}
	return nil
}

type verdict int

const (
	ack verdict = iota
	drop
	// release hands the retry to the sweeper instead of the broker, so a
	// failing dependency does not turn into an immediate redelivery loop.
	release
)

func decide(ctx context.Context, body []byte, handler TaskHandler) verdict {
	log := logger.FromContext(ctx)

	task, err := dispatch.ParseTask(body)
	if err != nil {
		log.Error("dropping malformed task", zap.ByteString("body", body), zap.Error(err))
		return drop
	}

	err = handler(ctx, task)
	switch {
	case err == nil:
		return ack
	case apperror.IsTerminal(err):
		log.Warn("task failed terminally", zap.Uint("event_id", task.EventID), zap.Error(err))
		return ack
	default:
		log.Error("task failed, leaving raw event for the sweeper", zap.Uint("event_id", task.EventID), zap.Error(err))
		return release
	}
}

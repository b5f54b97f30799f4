package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// ProcessorTokenHeader authenticates calls to the internal processor route.
const ProcessorTokenHeader = "X-Processor-Token"

// HTTP calls the processor endpoint in the background. Dispatch returns
// immediately; the outcome is only logged.
type HTTP struct {
	url     string
	token   string
	timeout time.Duration
	// done is signalled after each background call, for tests.
	done func(task Task, err error)
}

func NewHTTP(url, token string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{url: url, token: token, timeout: timeout}
}

func (h *HTTP) Dispatch(ctx context.Context, task Task) error {
	body, err := task.Marshal()
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	go func() {
		err := h.post(body)
		if err != nil {
			log.Warn("processor call failed", zap.Uint("event_id", task.EventID), zap.Error(err))
		} else {
			log.Debug("processor call finished", zap.Uint("event_id", task.EventID))
		}
		if h.done != nil {
			h.done(task, err)
		}
	}()
	return nil
}

func (h *HTTP) post(body []byte) error {
	agent := fiber.Post(h.url)
	agent.Set(ProcessorTokenHeader, h.token)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Body(body)
	agent.Timeout(h.timeout)
	if err := agent.Parse(); err != nil {
		return err
	}

	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code >= fiber.StatusInternalServerError {
		return fmt.Errorf("processor answered %d: %s", code, resp)
	}
	return nil
}

package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
	"github.com/ManuelReschke/TrackFox/internal/pkg/webhook"
)

// Webhook response statuses.
const (
	StatusAccepted         = "accepted"
	StatusAlreadyProcessed = "already_processed"
	StatusDuplicate        = "duplicate"
)

// webhookPlatform describes how a platform proves a delivery is genuine:
// either an HMAC header or, for unsigned platforms, mandatory top-level fields.
type webhookPlatform struct {
	SignatureHeader string
	Prefixes        []string
	RequiredFields  []string
}

var webhookPlatforms = map[string]webhookPlatform{
	config.PlatformA: {SignatureHeader: "X-Platform-A-Signature"},
	config.PlatformB: {SignatureHeader: "X-Platform-B-Signature", Prefixes: webhook.PlatformBSignaturePrefixes},
	config.PlatformC: {RequiredFields: normalizer.PlatformCRequiredFields},
	config.PlatformD: {SignatureHeader: "X-Platform-D-Signature"},
}

// SignatureHeader returns the header platform signs deliveries with, empty
// for unsigned platforms.
func SignatureHeader(platform string) string {
	return webhookPlatforms[platform].SignatureHeader
}

// OutcomeCounter counts receiver outcomes per platform.
type OutcomeCounter interface {
	Incr(ctx context.Context, platform, outcome string) error
}

type WebhookController struct {
	events     repository.RawEventRepository
	dispatcher dispatch.Dispatcher
	secrets    func(platform string) string
	now        func() time.Time
	outcomes   OutcomeCounter
}

func NewWebhookController(events repository.RawEventRepository, dispatcher dispatch.Dispatcher, cfg *config.Config) *WebhookController {
	return &WebhookController{
		events:     events,
		dispatcher: dispatcher,
		secrets:    cfg.Secret,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithCounter enables outcome counting.
func (w *WebhookController) WithCounter(c OutcomeCounter) *WebhookController {
	w.outcomes = c
	return w
}

// HandleWebhook returns the receiver for platform. It stores the delivery
// durably before handing it to the dispatcher, so the response never waits
// on processing.
func (w *WebhookController) HandleWebhook(platform string) fiber.Handler {
	spec, known := webhookPlatforms[platform]
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			c.Set(fiber.HeaderAllow, fiber.MethodPost)
			return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
		}
		if !known {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_platform"})
		}

		ctx := logger.WithPlatform(c.UserContext(), platform)
		log := logger.FromContext(ctx)

		// fiber reuses the request buffer once the handler returns
		body := append([]byte(nil), c.Body()...)
		fields, isObject := topLevelFields(body)

		if spec.SignatureHeader != "" {
			header := c.Get(spec.SignatureHeader)
			if !webhook.VerifySignatureWithPrefixes(body, header, w.secrets(platform), spec.Prefixes) {
				log.Warn("webhook signature rejected", zap.Bool("header_present", header != ""))
				w.recordError(c, platform, "invalid_signature", body, isObject)
				w.count(ctx, platform, "invalid_signature")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
			}
		}

		if !isObject {
			log.Warn("webhook body is not a JSON object", zap.Int("bytes", len(body)))
			w.recordError(c, platform, "invalid_json", body, false)
			w.count(ctx, platform, "invalid_json")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_json"})
		}
		for _, name := range spec.RequiredFields {
			if raw, ok := fields[name]; !ok || string(raw) == "null" {
				log.Warn("webhook missing required field", zap.String("field", name))
				w.recordError(c, platform, "missing_field:"+name, body, true)
				w.count(ctx, platform, "missing_field")
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_field: " + name})
			}
		}

		hash := webhook.Hash(body)
		created, stored, err := w.events.InsertIfAbsent(ctx, &models.RawEvent{
			Platform:   platform,
			EventType:  normalizer.DeclaredType(platform, body),
			Payload:    datatypes.JSON(body),
			Hash:       hash,
			ReceivedAt: w.now(),
		})
		if err != nil {
			log.Error("store raw event", zap.Error(err), zap.String("event_hash", hash))
			w.count(ctx, platform, "storage_error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage_unavailable"})
		}

		if !created {
			status := StatusDuplicate
			if stored.IsProcessed() {
				status = StatusAlreadyProcessed
			}
			log.Info("webhook already received", zap.Uint("event_id", stored.ID), zap.String("status", status))
			w.count(ctx, platform, status)
			return c.JSON(fiber.Map{"status": status, "event_id": stored.ID, "event_hash": hash})
		}

		task := dispatch.Task{EventID: stored.ID, Platform: platform, Hash: hash}
		if err := w.dispatcher.Dispatch(ctx, task); err != nil {
			log.Error("dispatch raw event", zap.Error(err), zap.Uint("event_id", stored.ID))
		}

		w.count(ctx, platform, StatusAccepted)
		log.Info("webhook accepted",
			zap.Uint("event_id", stored.ID),
			zap.String("event_type", stored.EventType),
			zap.String("event_hash", hash),
		)
		return c.JSON(fiber.Map{"status": StatusAccepted, "event_id": stored.ID, "event_hash": hash})
	}
}

func (w *WebhookController) recordError(c *fiber.Ctx, platform, reason string, body []byte, isJSON bool) {
	payload := datatypes.JSON(body)
	if !isJSON {
		// keep unparsable bodies as a JSON string
		quoted, _ := json.Marshal(string(body))
		payload = datatypes.JSON(quoted)
	}
	ctx := logger.WithPlatform(c.UserContext(), platform)
	if err := w.events.RecordError(ctx, &models.EventError{
		Platform: platform,
		Reason:   reason,
		Payload:  payload,
	}); err != nil {
		logger.FromContext(ctx).Error("record event error", zap.Error(err), zap.String("reason", reason))
	}
}

func (w *WebhookController) count(ctx context.Context, platform, outcome string) {
	if w.outcomes == nil {
		return
	}
	if err := w.outcomes.Incr(ctx, platform, outcome); err != nil {
		logger.FromContext(ctx).Debug("webhook counter", zap.Error(err))
	}
}

func topLevelFields(body []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

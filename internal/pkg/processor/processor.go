// Package processor runs the second phase of webhook handling: it loads a
// stored raw event, normalizes it and hands the canonical event to the
// order service.
package processor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/attribution"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
	"github.com/ManuelReschke/TrackFox/internal/pkg/orders"
	"github.com/ManuelReschke/TrackFox/internal/pkg/reporting"
)

// OrderHandler is implemented by orders.Service.
type OrderHandler interface {
	HandleOrderCreated(ctx context.Context, rawEventID uint, ev *normalizer.OrderCreated) (*orders.Result, error)
	HandleOrderPaid(ctx context.Context, rawEventID uint, ev *normalizer.OrderPaid) (*orders.Result, error)
	HandleRefund(ctx context.Context, rawEventID uint, ev *normalizer.Refund) (*orders.Result, error)
	HandleChargeback(ctx context.Context, rawEventID uint, ev *normalizer.Chargeback) (*orders.Result, error)
	HandleSubscriptionRenewed(ctx context.Context, ev *normalizer.SubscriptionRenewed) (*orders.Result, error)
	HandleEnrollment(ctx context.Context, ev *normalizer.Enrollment) (*orders.Result, error)
}

// Result is returned to the processor endpoint's caller.
type Result struct {
	EventID uint                 `json:"event_id"`
	Type    normalizer.EventType `json:"type"`
	Outcome *orders.Result       `json:"outcome"`
}

type Processor struct {
	events   repository.RawEventRepository
	registry *normalizer.Registry
	orders   OrderHandler
	sink     reporting.Sink
}

// New returns a processor. A nil sink disables reporting.
func New(events repository.RawEventRepository, registry *normalizer.Registry, handler OrderHandler, sink reporting.Sink) *Processor {
	if sink == nil {
		sink = reporting.Nop{}
	}
	return &Processor{events: events, registry: registry, orders: handler, sink: sink}
}

// Process handles raw event id. Terminal failures (normalization, missing
// order) mark the event processed with the error so it is not retried;
// internal failures leave it pending for the reprocess sweeper.
func (p *Processor) Process(ctx context.Context, id uint) (*Result, error) {
	raw, err := p.events.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("raw event %d not found", id))
	}
	if err != nil {
		return nil, apperror.Internal("load raw event", err)
	}

	ctx = logger.WithPlatform(ctx, raw.Platform)
	log := logger.FromContext(ctx).With(zap.Uint("event_id", id))

	if err := p.events.IncrementAttempts(ctx, id); err != nil {
		log.Warn("failed to count attempt", zap.Error(err))
	}

	event, err := p.registry.Normalize(ctx, raw.Platform, raw.Payload)
	if err != nil || event == nil {
		if err == nil {
			err = normalizer.ErrInvalidPayload
		}
		log.Warn("normalization failed", zap.Error(err))
		appErr := apperror.Unprocessable("normalization failed", err)
		p.recordError(ctx, raw, err.Error())
		p.finish(ctx, id, appErr)
		return nil, appErr
	}

	outcome, err := p.handle(ctx, id, event)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindUnprocessable {
			p.recordError(ctx, raw, err.Error())
		}
		if apperror.IsTerminal(err) {
			p.finish(ctx, id, err)
		}
		log.Error("processing failed", zap.String("type", string(event.Type())), zap.Error(err))
		return nil, err
	}

	p.finish(ctx, id, nil)
	p.report(ctx, id, event, outcome)

	log.Info("event processed",
		zap.String("type", string(event.Type())),
		zap.String("entity", outcome.Entity),
		zap.Uint("entity_id", outcome.ID),
	)
	return &Result{EventID: id, Type: event.Type(), Outcome: outcome}, nil
}

func (p *Processor) handle(ctx context.Context, id uint, event normalizer.Event) (*orders.Result, error) {
	switch ev := event.(type) {
	case *normalizer.OrderCreated:
		return p.orders.HandleOrderCreated(ctx, id, ev)
	case *normalizer.OrderPaid:
		return p.orders.HandleOrderPaid(ctx, id, ev)
	case *normalizer.Refund:
		return p.orders.HandleRefund(ctx, id, ev)
	case *normalizer.Chargeback:
		return p.orders.HandleChargeback(ctx, id, ev)
	case *normalizer.SubscriptionRenewed:
		return p.orders.HandleSubscriptionRenewed(ctx, ev)
	case *normalizer.Enrollment:
		return p.orders.HandleEnrollment(ctx, ev)
	default:
		return nil, apperror.Unprocessable(fmt.Sprintf("unsupported event %T", event), nil)
	}
}

func (p *Processor) recordError(ctx context.Context, raw *models.RawEvent, reason string) {
	id := raw.ID
	if err := p.events.RecordError(ctx, &models.EventError{
		Platform:   raw.Platform,
		RawEventID: &id,
		Reason:     reason,
		Payload:    raw.Payload,
	}); err != nil {
		logger.FromContext(ctx).Error("failed to record event error", zap.Uint("event_id", id), zap.Error(err))
	}
}

func (p *Processor) finish(ctx context.Context, id uint, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := p.events.MarkProcessed(ctx, id, reason); err != nil {
		logger.FromContext(ctx).Error("failed to mark event processed", zap.Uint("event_id", id), zap.Error(err))
	}
}

func (p *Processor) report(ctx context.Context, id uint, event normalizer.Event, outcome *orders.Result) {
	meta := event.Meta()
	fact := reporting.Fact{
		RawEventID: id,
		Platform:   meta.Platform,
		EventType:  string(event.Type()),
		Entity:     outcome.Entity,
		EntityID:   outcome.ID,
		Status:     outcome.Status,
		Amount:     amountOf(event),
		Attributed: outcome.Attributed,
		OccurredAt: meta.OccurredAt,
	}
	if meta.Touch != nil {
		fact.UTMSource = meta.Touch.UTMSource
	}
	if err := p.sink.Record(ctx, fact); err != nil {
		logger.FromContext(ctx).Warn("reporting sink failed", zap.Uint("event_id", id), zap.Error(err))
	}
}

// HandleTask adapts Process to the queue consumers.
func (p *Processor) HandleTask(ctx context.Context, task dispatch.Task) error {
	_, err := p.Process(ctx, task.EventID)
	return err
}

// NewFromConfig wires the default normalizers and the order service with
// the attribution window and status guard from cfg.
func NewFromConfig(repos *repository.Repositories, cfg *config.Config, sink reporting.Sink) *Processor {
	engine := attribution.NewEngine(repos.Attribution, repos.LastTouch, cfg.AttributionWindow)
	svc := orders.NewService(repos, engine, orders.WithStatusGuard(cfg.OrderStatusGuard))
	return New(repos.RawEvent, normalizer.DefaultRegistry(), svc, sink)
}

package attribution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

// DefaultWindow is how far back a pixel touch may credit an order.
const DefaultWindow = 72 * time.Hour

// Store persists attributions, one per order.
type Store interface {
	FindByOrderID(ctx context.Context, orderID uint) (*models.Attribution, error)
	Upsert(ctx context.Context, attribution *models.Attribution) error
}

// TouchFinder looks up pixel touches by customer identity.
type TouchFinder interface {
	FindLatestNonDirect(ctx context.Context, email, cpf string, since time.Time) (*models.LastTouch, error)
}

// Input describes the order being attributed. Inline is the tracking data
// the webhook carried itself, At the platform's event time.
type Input struct {
	OrderID uint
	Email   string
	CPF     string
	Inline  *models.TouchFields
	At      time.Time
}

type Engine struct {
	attributions Store
	touches      TouchFinder
	window       time.Duration
	now          func() time.Time
}

// NewEngine returns an engine with the given lookback window, DefaultWindow
// when window is not positive.
func NewEngine(attributions Store, touches TouchFinder, window time.Duration) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		attributions: attributions,
		touches:      touches,
		window:       window,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Window() time.Duration { return e.window }

// Attribute credits the order to the inline touch when it carries a source
// or click id, otherwise to the newest non-direct pixel touch of the
// customer inside the window. It returns nil when neither exists; an
// unattributed order is not an error.
func (e *Engine) Attribute(ctx context.Context, in Input) (*models.Attribution, error) {
	log := logger.FromContext(ctx).With(zap.Uint("order_id", in.OrderID))

	var (
		touch     models.TouchFields
		source    string
		touchedAt time.Time
	)

	switch {
	case HasInlineSignal(in.Inline):
		touch = *in.Inline
		source = models.AttributionSourceInline
		touchedAt = in.At
		if touchedAt.IsZero() {
			touchedAt = e.now()
		}
	default:
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if email == "" && in.CPF == "" {
			log.Debug("order has no identity for pixel lookup")
			return nil, nil
		}
		since := e.now().Add(-e.window)
		last, err := e.touches.FindLatestNonDirect(ctx, email, in.CPF, since)
		if err != nil {
			return nil, fmt.Errorf("find last touch: %w", err)
		}
		if last == nil {
			log.Debug("order unattributed", zap.Time("since", since))
			return nil, nil
		}
		touch = last.TouchFields
		source = models.AttributionSourcePixel
		touchedAt = last.TouchedAt
	}

	existing, err := e.attributions.FindByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}

	record := &models.Attribution{
		OrderID:      in.OrderID,
		Source:       source,
		TouchFields:  touch,
		FirstTouchAt: touchedAt,
		LastTouchAt:  touchedAt,
	}
	if existing != nil {
		record.TouchFields = Merge(existing.TouchFields, touch)
		record.FirstTouchAt = existing.FirstTouchAt
		if existing.LastTouchAt.After(touchedAt) {
			record.LastTouchAt = existing.LastTouchAt
		}
	}

	if err := e.attributions.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("save attribution: %w", err)
	}
	log.Info("order attributed",
		zap.String("source", record.Source),
		zap.String("utm_source", record.TouchFields.UTMSource),
	)
	return record, nil
}

// Package reporting forwards processing outcomes to an analytics store.
package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// Fact is one processed event as seen by reporting.
type Fact struct {
	RawEventID uint
	Platform   string
	EventType  string
	Entity     string
	EntityID   uint
	Status     string
	Amount     decimal.Decimal
	Attributed bool
	UTMSource  string
	OccurredAt time.Time
}

// Sink receives facts after the relational write succeeded. Errors are
// logged by the caller and never fail processing.
type Sink interface {
	Record(ctx context.Context, fact Fact) error
	Close() error
}

// Nop discards everything. It is used when no analytics store is set up.
type Nop struct{}

func (Nop) Record(context.Context, Fact) error { return nil }
func (Nop) Close() error                       { return nil }

// FromConfig returns the ClickHouse sink when a host is configured, Nop
// otherwise. The table is created on the way.
func FromConfig(ctx context.Context, cfg config.ClickHouseConfig) (Sink, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	ch, err := NewClickHouse(cfg)
	if err != nil {
		return nil, err
	}
	if err := ch.EnsureSchema(ctx); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

package reporting

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// execer is the part of the clickhouse driver.Conn the sink uses.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

type ClickHouse struct {
	conn     execer
	database string
}

// NewClickHouse connects and pings the server. The table is created by
// EnsureSchema.
func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		DialTimeout:  10 * time.Second,
	}
	// native protocol on 9000 runs without TLS, the HTTPS port needs it
	if cfg.Port == 8443 {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return newClickHouse(conn, cfg.Database), nil
}

func newClickHouse(conn execer, database string) *ClickHouse {
	return &ClickHouse{conn: conn, database: database}
}

func (c *ClickHouse) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.processed_events (
			raw_event_id UInt64,
			platform     LowCardinality(String),
			event_type   LowCardinality(String),
			entity       LowCardinality(String),
			entity_id    UInt64,
			status       LowCardinality(String),
			amount       Decimal(12, 2),
			attributed   UInt8,
			utm_source   String,
			occurred_at  DateTime64(3, 'UTC'),
			recorded_at  DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(recorded_at)
		ORDER BY (platform, raw_event_id)
	`, c.database)
	return c.conn.Exec(ctx, query)
}

// Record inserts one row. ReplacingMergeTree collapses reprocessed events
// by raw_event_id.
func (c *ClickHouse) Record(ctx context.Context, fact Fact) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.processed_events (
			raw_event_id, platform, event_type, entity, entity_id, status,
			amount, attributed, utm_source, occurred_at, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.database)

	attributed := uint8(0)
	if fact.Attributed {
		attributed = 1
	}
	return c.conn.Exec(ctx, query,
		uint64(fact.RawEventID),
		fact.Platform,
		fact.EventType,
		fact.Entity,
		uint64(fact.EntityID),
		fact.Status,
		fact.Amount,
		attributed,
		fact.UTMSource,
		fact.OccurredAt.UTC(),
		time.Now().UTC(),
	)
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}

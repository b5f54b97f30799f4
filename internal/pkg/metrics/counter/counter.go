// Package counter keeps per platform webhook outcome counters in Redis.
package counter

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "trackfox:counters:webhooks"

// Counter increments hash fields named "<platform>:<outcome>". A nil
// Counter or one without a client counts nothing.
type Counter struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client) *Counter {
	return &Counter{client: client, key: webhookOutcomesKey}
}

// Incr adds one to the platform's outcome counter.
func (c *Counter) Incr(ctx context.Context, platform, outcome string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.HIncrBy(ctx, c.key, platform+":"+outcome, 1).Err()
}

// Snapshot returns the counters grouped by platform then outcome.
func (c *Counter) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	out := make(map[string]map[string]int64)
	if c == nil || c.client == nil {
		return out, nil
	}

	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	for field, raw := range data {
		platform, outcome, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if out[platform] == nil {
			out[platform] = make(map[string]int64)
		}
		out[platform][outcome] = n
	}
	return out, nil
}

// Reset drops all counters.
func (c *Counter) Reset(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key).Err()
}

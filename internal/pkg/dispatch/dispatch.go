// Package dispatch hands stored raw events to the event processor.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
)

// Task identifies a raw event waiting for processing.
type Task struct {
	EventID  uint   `json:"event_id"`
	Platform string `json:"platform,omitempty"`
	Hash     string `json:"event_hash,omitempty"`
}

// Dispatcher queues a task. Implementations return once the hand-off is
// accepted; they never wait for processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, task Task) error

func (f DispatcherFunc) Dispatch(ctx context.Context, task Task) error { return f(ctx, task) }

func (t Task) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// ParseTask decodes a task body and rejects one without an event id.
func ParseTask(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.EventID == 0 {
		return Task{}, fmt.Errorf("decode task: missing event_id")
	}
	return t, nil
}

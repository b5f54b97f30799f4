package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// ErrInvalidPayload is wrapped by every shape mismatch.
var ErrInvalidPayload = errors.New("invalid payload")

// ErrUnknownPlatform is returned for a platform without a normalizer.
var ErrUnknownPlatform = errors.New("unknown platform")

var validate = validator.New()

// Normalizer turns one platform's webhook JSON into a canonical Event. A
// payload that does not match the platform's shape yields a nil Event and
// an error wrapping ErrInvalidPayload.
type Normalizer interface {
	Platform() string
	Normalize(ctx context.Context, payload []byte) (Event, error)
}

// Clock returns the time used when a payload carries no timestamp.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// Registry resolves normalizers by platform id.
type Registry struct {
	byPlatform map[string]Normalizer
}

func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{byPlatform: make(map[string]Normalizer, len(normalizers))}
	for _, n := range normalizers {
		r.byPlatform[n.Platform()] = n
	}
	return r
}

// DefaultRegistry knows all four platforms.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPlatformA(nil), NewPlatformB(nil), NewPlatformC(nil), NewPlatformD(nil))
}

func (r *Registry) Get(platform string) (Normalizer, bool) {
	n, ok := r.byPlatform[platform]
	return n, ok
}

func (r *Registry) Normalize(ctx context.Context, platform string, payload []byte) (Event, error) {
	n, ok := r.Get(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return n.Normalize(ctx, payload)
}

// decode unmarshals and validates payload into dst.
func decode(payload []byte, dst interface{}) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// DeclaredType extracts the informational event type a platform puts in
// its payload. Unknown platforms and unparsable bodies yield "".
func DeclaredType(platform string, payload []byte) string {
	var probe struct {
		Event            flexString `json:"event"`
		WebhookEventType flexString `json:"webhook_event_type"`
		EventName        flexString `json:"event_name"`
		TransStatus      flexString `json:"trans_status"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	switch platform {
	case config.PlatformA, config.PlatformD:
		return probe.Event.String()
	case config.PlatformB:
		return probe.WebhookEventType.String()
	case config.PlatformC:
		if probe.EventName != "" {
			return probe.EventName.String()
		}
		if probe.TransStatus != "" {
			return "trans_status_" + probe.TransStatus.String()
		}
	}
	return ""
}

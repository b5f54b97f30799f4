package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
)

func TestDecide(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"event_id":5}`)

	cases := []struct {
		name string
		body []byte
		err  error
		want verdict
	}{
		{"processed", body, nil, ack},
		{"missing order is not retried", body, apperror.NotFound("order x not found"), ack},
		{"bad payload is not retried", body, apperror.Unprocessable("normalization failed", nil), ack},
		{"storage failure is released to the sweeper", body, apperror.Internal("db", errors.New("down")), release},
		{"plain error is released to the sweeper", body, errors.New("boom"), release},
		{"malformed body is dropped", []byte(`{}`), nil, drop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got dispatch.Task
			v := decide(ctx, tc.body, func(_ context.Context, task dispatch.Task) error {
				got = task
				return tc.err
			})
			assert.Equal(t, tc.want, v)
			if tc.want != drop {
				assert.Equal(t, uint(5), got.EventID)
			}
		})
	}
}

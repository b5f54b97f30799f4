package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/jobqueue"
)

type fixedSnapshot struct {
	data map[string]map[string]int64
	err  error
}

func (f fixedSnapshot) Snapshot(context.Context) (map[string]map[string]int64, error) {
	return f.data, f.err
}

func getStats(t *testing.T, sc *StatsController) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/internal/stats", sc.HandleStats)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/internal/stats", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestHandleStats(t *testing.T) {
	events := repository.NewRawEventRepository(dbtest.Open(t))
	manager := jobqueue.NewManager(nil, events, dispatch.DispatcherFunc(func(context.Context, dispatch.Task) error { return nil }), jobqueue.ReprocessConfig{})

	status, out := getStats(t, NewStatsController(fixedSnapshot{data: map[string]map[string]int64{
		"platform_b": {"accepted": 3},
	}}, manager))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"platform_b": map[string]interface{}{"accepted": float64(3)}}, out["webhooks"])
	assert.Equal(t, false, out["sweeper_running"])
	assert.NotContains(t, out, "queue")
}

func TestHandleStatsCountersDown(t *testing.T) {
	status, out := getStats(t, NewStatsController(fixedSnapshot{err: errors.New("redis down")}, nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "counters_unavailable", out["error"])
}

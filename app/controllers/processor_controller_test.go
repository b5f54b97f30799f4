package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
	"github.com/ManuelReschke/TrackFox/internal/pkg/orders"
	"github.com/ManuelReschke/TrackFox/internal/pkg/processor"
)

type stubProcessor map[uint]error

func (s stubProcessor) Process(_ context.Context, id uint) (*processor.Result, error) {
	err, ok := s[id]
	if !ok {
		return nil, apperror.NotFound("raw event not found")
	}
	if err != nil {
		return nil, err
	}
	return &processor.Result{
		EventID: id,
		Type:    normalizer.TypeOrderPaid,
		Outcome: &orders.Result{Entity: "order", ID: 7, Status: "paid", PaymentRecorded: true},
	}, nil
}

func callProcessor(t *testing.T, p EventProcessor, body string) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Post("/internal/events/process", NewProcessorController(p).HandleProcess)

	req := httptest.NewRequest(fiber.MethodPost, "/internal/events/process", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestHandleProcess(t *testing.T) {
	p := stubProcessor{
		1: nil,
		2: apperror.Unprocessable("normalize platform_b payload", normalizer.ErrInvalidPayload),
		3: apperror.Internal("load raw event", io.ErrUnexpectedEOF),
	}

	status, body := callProcessor(t, p, `{"event_id":1}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "processed", body["status"])
	assert.Equal(t, float64(1), body["event_id"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, string(normalizer.TypeOrderPaid), result["type"])

	status, body = callProcessor(t, p, `{"event_id":2}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "normalize platform_b payload", body["error"])

	status, body = callProcessor(t, p, `{"event_id":3}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body["error"], "internal causes stay in the logs")

	status, _ = callProcessor(t, p, `{"event_id":404}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleProcessBadBody(t *testing.T) {
	for _, body := range []string{``, `{}`, `{"event_id":"x"}`, `{"event_id":0}`, `not json`} {
		status, out := callProcessor(t, stubProcessor{}, body)
		assert.Equal(t, fiber.StatusBadRequest, status, body)
		assert.Equal(t, "event_id is required", out["error"])
	}
}

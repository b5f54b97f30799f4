package normalizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestGarbagePayloadYieldsNilForAllPlatforms(t *testing.T) {
	garbage := [][]byte{
		[]byte(`{"foo":"bar"}`),
		[]byte(`not json at all`),
		[]byte(`[1,2,3]`),
		[]byte(`null`),
		[]byte(`{"data":{"purchase":{"status":"approved"}}}`),
	}
	registry := NewRegistry(NewPlatformA(fixedClock), NewPlatformB(fixedClock), NewPlatformC(fixedClock), NewPlatformD(fixedClock))

	for _, platform := range []string{config.PlatformA, config.PlatformB, config.PlatformC, config.PlatformD} {
		for _, payload := range garbage {
			ev, err := registry.Normalize(context.Background(), platform, payload)
			assert.Nil(t, ev, "%s: %s", platform, payload)
			assert.ErrorIs(t, err, ErrInvalidPayload, "%s: %s", platform, payload)
		}
	}
}

func TestRegistryUnknownPlatform(t *testing.T) {
	ev, err := DefaultRegistry().Normalize(context.Background(), "platform_x", []byte(`{}`))
	assert.Nil(t, ev)
	assert.True(t, errors.Is(err, ErrUnknownPlatform))
}

func TestUnknownStatusDefaultsToPendingAndWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	payload := []byte(`{"order_id":"b-1","order_status":"teleported","product":{"product_id":"p"},"commissions":{"charge_amount":1000}}`)
	ev, err := NewPlatformB(fixedClock).Normalize(ctx, payload)
	require.NoError(t, err)

	created, ok := ev.(*OrderCreated)
	require.True(t, ok, "pending maps to OrderCreated, got %T", ev)
	assert.Equal(t, "pending", created.Status)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "teleported", entry.ContextMap()["raw_status"])
}

func TestDeclaredType(t *testing.T) {
	assert.Equal(t, "PURCHASE_APPROVED", DeclaredType(config.PlatformA, readFixture(t, "platform_a_approved.json")))
	assert.Equal(t, "order_approved", DeclaredType(config.PlatformB, readFixture(t, "platform_b_paid.json")))
	assert.Equal(t, "invoice_paid", DeclaredType(config.PlatformC, readFixture(t, "platform_c_paid.json")))
	assert.Equal(t, "trans_status_7", DeclaredType(config.PlatformC, []byte(`{"trans_status":7}`)))
	assert.Equal(t, "enrollment.created", DeclaredType(config.PlatformD, readFixture(t, "platform_d_enrollment.json")))
	assert.Empty(t, DeclaredType(config.PlatformA, []byte(`garbage`)))
}

func TestStatusTables(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		table map[string]string
		raw   string
		want  string
	}{
		{platformAStatuses, "APPROVED", "paid"},
		{platformAStatuses, "chargeback", "chargeback"},
		{platformAStatuses, "billet_printed", "pending"},
		{platformAStatuses, "expired", "canceled"},
		{platformBStatuses, "chargedback", "chargeback"},
		{platformBStatuses, "refused", "canceled"},
		{platformCStatuses, "3", "paid"},
		{platformCStatuses, "7", "refunded"},
		{platformCStatuses, "15", "chargeback"},
		{platformCStatuses, "99", "pending"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mapStatus(ctx, "test", tc.table, tc.raw, "pending"), tc.raw)
	}
}

func TestParseLocaleDecimal(t *testing.T) {
	cases := map[string]string{
		"497.00":       "497.00",
		"497,00":       "497.00",
		"1.497,50":     "1497.50",
		"1.497,00":     "1497.00",
		"1,497.00":     "1497.00",
		"1,234,567.89": "1234567.89",
		"1.234.567,89": "1234567.89",
		"1.497.000":    "1497000.00",
		"1,497,000":    "1497000.00",
		"10":           "10.00",
		"":             "0.00",
	}
	for in, want := range cases {
		got, err := parseLocaleDecimal(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.StringFixed(2), in)
	}
	_, err := parseLocaleDecimal("abc")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformB_ConvertsCents(t *testing.T) {
	ev, err := NewPlatformB(fixedClock).Normalize(context.Background(), readFixture(t, "platform_b_paid.json"))
	require.NoError(t, err)

	paid, ok := ev.(*OrderPaid)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "197.90", paid.Amount.StringFixed(2))
	assert.Equal(t, "15.83", paid.Fee.StringFixed(2))
	assert.Equal(t, "b-98213", paid.OrderRef)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC), paid.PaidAt)
	assert.Equal(t, "98765432100", paid.Customer.CPF)
	require.NotNil(t, paid.Touch)
	assert.Equal(t, "Cj0KCQjw", paid.Touch.Gclid)
	assert.Empty(t, paid.Touch.UTMSource)
}

func TestPlatformB_SubscriptionRenewed(t *testing.T) {
	ev, err := NewPlatformB(fixedClock).Normalize(context.Background(), readFixture(t, "platform_b_renewed.json"))
	require.NoError(t, err)

	renewed, ok := ev.(*SubscriptionRenewed)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "sub-55", renewed.SubscriptionRef)
	assert.Equal(t, "active", renewed.Status)
	assert.Equal(t, "Mensal", renewed.PlanName)
	assert.Equal(t, "197.90", renewed.Amount.StringFixed(2))
	assert.Equal(t, "prod-77", renewed.Product.Ref)
	require.NotNil(t, renewed.NextChargeAt)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), *renewed.NextChargeAt)
}

func TestPlatformB_RenewalWithoutSubscriptionIsInvalid(t *testing.T) {
	payload := []byte(`{"webhook_event_type":"subscription_renewed","order_id":"b-1","order_status":"paid","product":{"product_id":"p"}}`)
	ev, err := NewPlatformB(fixedClock).Normalize(context.Background(), payload)
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPlatformB_NumericOrderID(t *testing.T) {
	payload := []byte(`{"order_id":12345,"order_status":"refunded","product":{"product_id":9},"commissions":{"charge_amount":500}}`)
	ev, err := NewPlatformB(fixedClock).Normalize(context.Background(), payload)
	require.NoError(t, err)

	refund, ok := ev.(*Refund)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "12345", refund.OrderRef)
	assert.Equal(t, "5.00", refund.Amount.StringFixed(2))
	assert.Equal(t, DefaultRefundReason, refund.Reason)
}

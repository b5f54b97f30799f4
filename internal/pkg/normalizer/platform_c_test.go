package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformC_CommaDecimalsAndQuantity(t *testing.T) {
	ev, err := NewPlatformC(fixedClock).Normalize(context.Background(), readFixture(t, "platform_c_paid.json"))
	require.NoError(t, err)

	paid, ok := ev.(*OrderPaid)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "884411", paid.OrderRef)
	assert.Equal(t, "1497.00", paid.Amount.StringFixed(2))
	assert.Equal(t, "99.80", paid.Fee.StringFixed(2))
	assert.Equal(t, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), paid.PaidAt)
	assert.Equal(t, "11122233344", paid.Customer.CPF)
	require.NotNil(t, paid.Touch)
	assert.Equal(t, "instagram", paid.Touch.UTMSource)
	assert.Equal(t, "stories", paid.Touch.UTMCampaign)
}

func TestPlatformC_OpenTransactionIsOrderCreated(t *testing.T) {
	payload := []byte(`{"trans_cod":"1","trans_status":1,"trans_value":"100,00","trans_qnt":3,"product_cod":"p-1"}`)
	ev, err := NewPlatformC(fixedClock).Normalize(context.Background(), payload)
	require.NoError(t, err)

	created, ok := ev.(*OrderCreated)
	require.True(t, ok, "got %T", ev)
	require.Len(t, created.Items, 1)
	assert.Equal(t, 3, created.Items[0].Quantity)
	assert.Equal(t, "33.33", created.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, fixedNow, created.OccurredAt)
}

func TestPlatformC_BadAmountIsInvalid(t *testing.T) {
	payload := []byte(`{"trans_cod":"1","trans_status":"3","trans_value":"lots","product_cod":"p-1"}`)
	ev, err := NewPlatformC(fixedClock).Normalize(context.Background(), payload)
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPlatformC_DotDecimalWithThousands(t *testing.T) {
	payload := []byte(`{"trans_cod":"2","trans_status":"3","trans_value":"1,497.00","trans_fee":"1,049.90","product_cod":"p-1"}`)
	ev, err := NewPlatformC(fixedClock).Normalize(context.Background(), payload)
	require.NoError(t, err)

	paid, ok := ev.(*OrderPaid)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "1497.00", paid.Amount.StringFixed(2))
	assert.Equal(t, "1049.90", paid.Fee.StringFixed(2))
}

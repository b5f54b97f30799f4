package normalizer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

func TestPlatformA_ApprovedIsOrderPaid(t *testing.T) {
	ev, err := NewPlatformA(fixedClock).Normalize(context.Background(), readFixture(t, "platform_a_approved.json"))
	require.NoError(t, err)

	paid, ok := ev.(*OrderPaid)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, TypeOrderPaid, paid.Type())
	assert.Equal(t, "497.00", paid.Amount.StringFixed(2))
	assert.Equal(t, "50.00", paid.Fee.StringFixed(2))
	assert.Equal(t, "HP17172432001", paid.OrderRef)
	assert.Equal(t, "CREDIT_CARD", paid.PaymentMethod)
	assert.Equal(t, 3, paid.Installments)
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), paid.PaidAt)

	meta := paid.Meta()
	assert.Equal(t, config.PlatformA, meta.Platform)
	assert.Equal(t, "maria.silva@example.com", meta.Customer.Email)
	assert.Equal(t, "12345678901", meta.Customer.CPF)
	require.NotNil(t, meta.Touch)
	assert.Equal(t, "facebook", meta.Touch.UTMSource)
	assert.Equal(t, "black-friday", meta.Touch.UTMCampaign)
}

func TestPlatformA_RefundedIsRefund(t *testing.T) {
	ev, err := NewPlatformA(fixedClock).Normalize(context.Background(), readFixture(t, "platform_a_refunded.json"))
	require.NoError(t, err)

	refund, ok := ev.(*Refund)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "497.00", refund.Amount.StringFixed(2))
	assert.Equal(t, "Solicitação do cliente", refund.Reason)
	assert.Equal(t, "HP17172432001", refund.OrderRef)
}

func TestPlatformA_PendingIsOrderCreatedWithItem(t *testing.T) {
	payload := []byte(`{
		"event": "PURCHASE_BILLET_PRINTED",
		"data": {
			"product": {"id": "77", "name": "Ebook"},
			"buyer": {"email": "x@example.com"},
			"purchase": {"transaction": "HP-2", "status": "billet_printed", "price": {"value": "19.9"}}
		}
	}`)
	ev, err := NewPlatformA(fixedClock).Normalize(context.Background(), payload)
	require.NoError(t, err)

	created, ok := ev.(*OrderCreated)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "19.90", created.Amount.StringFixed(2))
	assert.Equal(t, "BRL", created.Currency)
	assert.Equal(t, 1, created.Installments)
	assert.Equal(t, fixedNow, created.OccurredAt, "missing creation_date falls back to the clock")
	assert.Nil(t, created.Touch)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "77", created.Items[0].Ref)
}

func TestPlatformA_ChargebackAndCustomReason(t *testing.T) {
	base := `{"data":{"product":{"id":1},"purchase":{"transaction":"HP-3","status":"%s","price":{"value":10},"refund_reason":"%s"}}}`

	ev, err := NewPlatformA(fixedClock).Normalize(context.Background(), []byte(fmt.Sprintf(base, "chargeback", "")))
	require.NoError(t, err)
	cb, ok := ev.(*Chargeback)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "10.00", cb.Amount.StringFixed(2))

	ev, err = NewPlatformA(fixedClock).Normalize(context.Background(), []byte(fmt.Sprintf(base, "refunded", "Produto com defeito")))
	require.NoError(t, err)
	assert.Equal(t, "Produto com defeito", ev.(*Refund).Reason)
}

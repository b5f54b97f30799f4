package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/app/repository"
	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/attribution"
	"github.com/ManuelReschke/TrackFox/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
)

func setup(t *testing.T, opts ...Option) (*Service, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)
	engine := attribution.NewEngine(repos.Attribution, repos.LastTouch, attribution.DefaultWindow)
	return NewService(repos, engine, opts...), repos, db
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func envelope(at time.Time) normalizer.Envelope {
	return normalizer.Envelope{
		Platform:   "platform_a",
		OccurredAt: at,
		Customer:   normalizer.Customer{Email: "maria@example.com", CPF: "12345678901", Name: "Maria"},
	}
}

func created(at time.Time, status string) *normalizer.OrderCreated {
	return &normalizer.OrderCreated{
		Envelope:      envelope(at),
		OrderRef:      "HP-100",
		Status:        status,
		Amount:        money("497.00"),
		Fee:           money("50.00"),
		Currency:      "BRL",
		PaymentMethod: "credit_card",
		Installments:  3,
		Items: []normalizer.Item{
			{Ref: "P-1", Name: "Curso", Quantity: 1, UnitPrice: money("497.00")},
		},
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestHandleOrderCreated_PaidWritesEverything(t *testing.T) {
	svc, repos, db := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	ev := created(at, models.OrderStatusPaid)
	ev.Touch = &models.TouchFields{UTMSource: "instagram", UTMCampaign: "launch"}

	res, err := svc.HandleOrderCreated(ctx, 1, ev)
	require.NoError(t, err)
	assert.Equal(t, "order", res.Entity)
	assert.True(t, res.PaymentRecorded)
	assert.True(t, res.Attributed)

	order, err := repos.Order.FindByRef(ctx, "platform_a", "HP-100")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.True(t, order.Amount.Equal(money("497")))
	assert.True(t, order.Fee.Equal(money("50")))
	require.NotNil(t, order.PaidAt)

	a, err := repos.Attribution.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.AttributionSourceInline, a.Source)
	assert.Equal(t, "launch", a.TouchFields.UTMCampaign)

	assert.Equal(t, int64(1), count(t, db, &models.Customer{}))
	assert.Equal(t, int64(1), count(t, db, &models.Product{}))
	assert.Equal(t, int64(1), count(t, db, &models.OrderItem{}))
	assert.Equal(t, int64(1), count(t, db, &models.Payment{}))

	// the same raw event processed again books nothing new
	res, err = svc.HandleOrderCreated(ctx, 1, ev)
	require.NoError(t, err)
	assert.False(t, res.PaymentRecorded)
	assert.Equal(t, order.ID, res.ID)
	assert.Equal(t, int64(1), count(t, db, &models.Order{}))
	assert.Equal(t, int64(1), count(t, db, &models.OrderItem{}))
	assert.Equal(t, int64(1), count(t, db, &models.Payment{}))
}

func TestHandleOrderCreated_AttributesFromPixel(t *testing.T) {
	svc, repos, _ := setup(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	email := "maria@example.com"
	require.NoError(t, repos.LastTouch.Replace(ctx, &models.LastTouch{
		VisitorID:   "visitor-1",
		Email:       &email,
		TouchFields: models.TouchFields{UTMSource: "facebook", Fbclid: "fb-1"},
		TouchedAt:   now.Add(-2 * time.Hour),
		LastSeenAt:  now.Add(-2 * time.Hour),
	}))

	res, err := svc.HandleOrderCreated(ctx, 1, created(now, models.OrderStatusPending))
	require.NoError(t, err)
	assert.True(t, res.Attributed)
	assert.False(t, res.PaymentRecorded)

	a, err := repos.Attribution.FindByOrderID(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.AttributionSourcePixel, a.Source)
	assert.Equal(t, "fb-1", a.TouchFields.Fbclid)
}

func TestHandleOrderPaid(t *testing.T) {
	svc, repos, db := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	_, err := svc.HandleOrderCreated(ctx, 1, created(at, models.OrderStatusPending))
	require.NoError(t, err)

	paid := &normalizer.OrderPaid{
		Envelope:      envelope(at.Add(time.Minute)),
		OrderRef:      "HP-100",
		Amount:        money("497.00"),
		Fee:           money("50.00"),
		PaymentMethod: "pix",
		Installments:  1,
		PaidAt:        at.Add(time.Minute),
	}
	res, err := svc.HandleOrderPaid(ctx, 2, paid)
	require.NoError(t, err)
	assert.True(t, res.PaymentRecorded)

	order, err := repos.Order.FindByRef(ctx, "platform_a", "HP-100")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "pix", order.PaymentMethod)

	var payment models.Payment
	require.NoError(t, db.First(&payment).Error)
	assert.True(t, payment.Amount.Equal(money("497")))
	assert.True(t, payment.Fee.Equal(money("50")))
	assert.Equal(t, uint(2), payment.RawEventID)
}

func TestMissingOrderIsNotFound(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	at := time.Now().UTC()

	_, err := svc.HandleOrderPaid(ctx, 1, &normalizer.OrderPaid{Envelope: envelope(at), OrderRef: "nope", PaidAt: at})
	assert.Equal(t, 404, apperror.StatusOf(err))

	_, err = svc.HandleRefund(ctx, 2, &normalizer.Refund{Envelope: envelope(at), OrderRef: "nope"})
	assert.Equal(t, 404, apperror.StatusOf(err))

	_, err = svc.HandleChargeback(ctx, 3, &normalizer.Chargeback{Envelope: envelope(at), OrderRef: "nope"})
	assert.Equal(t, 404, apperror.StatusOf(err))
	assert.True(t, apperror.IsTerminal(err))

	assert.Equal(t, int64(0), count(t, db, &models.Refund{}))
}

func TestRefundAndChargeback(t *testing.T) {
	svc, repos, db := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	_, err := svc.HandleOrderCreated(ctx, 1, created(at, models.OrderStatusPaid))
	require.NoError(t, err)

	res, err := svc.HandleRefund(ctx, 2, &normalizer.Refund{
		Envelope: envelope(at.Add(time.Hour)),
		OrderRef: "HP-100",
		Amount:   money("497.00"),
		Reason:   normalizer.DefaultRefundReason,
	})
	require.NoError(t, err)
	assert.True(t, res.RefundRecorded)

	order, err := repos.Order.FindByRef(ctx, "platform_a", "HP-100")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)

	// chargeback without an amount falls back to the order amount
	_, err = svc.HandleChargeback(ctx, 3, &normalizer.Chargeback{Envelope: envelope(at.Add(2 * time.Hour)), OrderRef: "HP-100"})
	require.NoError(t, err)

	var refunds []models.Refund
	require.NoError(t, db.Order("id").Find(&refunds).Error)
	require.Len(t, refunds, 2)
	assert.Equal(t, "Solicitação do cliente", refunds[0].Reason)
	assert.Equal(t, models.RefundReasonChargeback, refunds[1].Reason)
	assert.True(t, refunds[1].Amount.Equal(money("497")))

	order, err = repos.Order.FindByRef(ctx, "platform_a", "HP-100")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusChargeback, order.Status)
}

// Status is overwritten blindly: a late "created" event puts a paid order
// back to pending. The status guard prevents it.
func TestOutOfOrderStatusOverwrite(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Second)
	ctx := context.Background()

	t.Run("blind overwrite", func(t *testing.T) {
		svc, repos, _ := setup(t)
		_, err := svc.HandleOrderCreated(ctx, 1, created(at, models.OrderStatusPaid))
		require.NoError(t, err)
		_, err = svc.HandleOrderCreated(ctx, 2, created(at.Add(-time.Hour), models.OrderStatusPending))
		require.NoError(t, err)

		order, err := repos.Order.FindByRef(ctx, "platform_a", "HP-100")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		require.NotNil(t, order.PaidAt, "paid_at is never cleared")
	})

	t.Run("guarded", func(t *testing.T) {
		svc, repos, _ := setup(t, WithStatusGuard(true))
		_, err := svc.HandleOrderCreated(ctx, 1, created(at, models.OrderStatusPaid))
		require.NoError(t, err)
		res, err := svc.HandleOrderCreated(ctx, 2, created(at.Add(-time.Hour), models.OrderStatusPending))
		require.NoError(t, err)
		assert.True(t, res.StatusSkipped)

		order, err := repos.Order.FindByRef(ctx, "platform_a", "HP-100")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)

		_, err = svc.HandleRefund(ctx, 3, &normalizer.Refund{Envelope: envelope(at.Add(-time.Minute)), OrderRef: "HP-100", Reason: "x"})
		require.NoError(t, err)
		order, err = repos.Order.FindByRef(ctx, "platform_a", "HP-100")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)
	})
}

func TestUpsertCustomerIdentity(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()

	first, err := svc.UpsertCustomer(ctx, normalizer.Customer{CPF: "11122233344", Name: "Ana"})
	require.NoError(t, err)
	assert.Nil(t, first.Email)

	// found by CPF, email filled because it was empty
	second, err := svc.UpsertCustomer(ctx, normalizer.Customer{Email: "ana@example.com", CPF: "11122233344", Phone: "+5511999990000"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Email)
	assert.Equal(t, "ana@example.com", *second.Email)
	assert.Equal(t, "Ana", second.Name, "empty name does not clear")

	// CPF is first writer wins
	third, err := svc.UpsertCustomer(ctx, normalizer.Customer{Email: "ana@example.com", CPF: "99988877766", Name: "Ana Paula"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	var stored models.Customer
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, "11122233344", *stored.CPF)
	assert.Equal(t, "Ana Paula", stored.Name)
	assert.Equal(t, "+5511999990000", stored.Phone)
	assert.Equal(t, int64(1), count(t, db, &models.Customer{}))

	_, err = svc.UpsertCustomer(ctx, normalizer.Customer{Name: "ghost"})
	assert.Equal(t, 422, apperror.StatusOf(err))
}

func TestHandleSubscriptionRenewedAndEnrollment(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)
	next := at.AddDate(0, 1, 0)

	renewal := &normalizer.SubscriptionRenewed{
		Envelope:        envelope(at),
		SubscriptionRef: "SUB-1",
		Status:          models.SubscriptionStatusActive,
		PlanName:        "Mensal",
		Amount:          money("97.00"),
		Product:         normalizer.Item{Ref: "P-9", Name: "Clube", UnitPrice: money("97.00")},
		RenewedAt:       at,
		NextChargeAt:    &next,
	}
	res, err := svc.HandleSubscriptionRenewed(ctx, renewal)
	require.NoError(t, err)
	assert.Equal(t, "subscription", res.Entity)

	_, err = svc.HandleSubscriptionRenewed(ctx, renewal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, db, &models.Subscription{}))

	enrollment := &normalizer.Enrollment{
		Envelope:      envelope(at),
		EnrollmentRef: "ENR-1",
		Status:        models.EnrollmentStatusActive,
		Course:        normalizer.Item{Ref: "C-1", Name: "Go"},
		EnrolledAt:    at,
	}
	res, err = svc.HandleEnrollment(ctx, enrollment)
	require.NoError(t, err)
	assert.Equal(t, "enrollment", res.Entity)
	assert.Equal(t, int64(2), count(t, db, &models.Product{}))

	enrollment.Course.Ref = ""
	_, err = svc.HandleEnrollment(ctx, enrollment)
	assert.Equal(t, 422, apperror.StatusOf(err))
}

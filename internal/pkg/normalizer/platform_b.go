package normalizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

const platformBSubscriptionRenewed = "subscription_renewed"

// platformBPayload: amounts in cents, optional subscription block.
type platformBPayload struct {
	WebhookEventType string     `json:"webhook_event_type"`
	OrderID          flexString `json:"order_id" validate:"required"`
	OrderStatus      string     `json:"order_status" validate:"required"`
	PaymentMethod    string     `json:"payment_method"`
	Installments     int        `json:"installments"`
	CreatedAt        string     `json:"created_at"`
	UpdatedAt        string     `json:"updated_at"`
	ApprovedDate     string     `json:"approved_date"`
	RefundReason     string     `json:"refund_reason"`
	Product          struct {
		ProductID   flexString `json:"product_id" validate:"required"`
		ProductName string     `json:"product_name"`
	} `json:"product"`
	Customer struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Mobile   string `json:"mobile"`
		CPF      string `json:"cpf"`
	} `json:"customer"`
	Commissions struct {
		ChargeAmount int64  `json:"charge_amount"`
		PlatformFee  int64  `json:"platform_fee"`
		Currency     string `json:"currency"`
	} `json:"commissions"`
	Subscription *struct {
		ID     flexString `json:"id"`
		Status string     `json:"status"`
		Plan   struct {
			Name string `json:"name"`
		} `json:"plan"`
		NextPayment string `json:"next_payment"`
	} `json:"subscription"`
	TrackingParameters trackingPayload `json:"tracking_parameters"`
}

type platformB struct {
	now Clock
}

func NewPlatformB(now Clock) Normalizer {
	if now == nil {
		now = systemClock
	}
	return &platformB{now: now}
}

func (n *platformB) Platform() string { return config.PlatformB }

func (n *platformB) Normalize(ctx context.Context, payload []byte) (Event, error) {
	var p platformBPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	occurredAt := timeOr(p.UpdatedAt, timeOr(p.CreatedAt, n.now()))
	envelope := Envelope{
		Platform:   config.PlatformB,
		OccurredAt: occurredAt,
		Customer:   newCustomer(p.Customer.Email, p.Customer.CPF, p.Customer.FullName, p.Customer.Mobile),
		Touch:      p.TrackingParameters.touch(),
	}
	amount := fromCents(p.Commissions.ChargeAmount)
	product := Item{
		Ref:       p.Product.ProductID.String(),
		Name:      p.Product.ProductName,
		Quantity:  1,
		UnitPrice: amount,
	}

	if strings.EqualFold(strings.TrimSpace(p.WebhookEventType), platformBSubscriptionRenewed) {
		if p.Subscription == nil || p.Subscription.ID == "" {
			return nil, fmt.Errorf("%w: subscription renewal without subscription id", ErrInvalidPayload)
		}
		return &SubscriptionRenewed{
			Envelope:        envelope,
			SubscriptionRef: p.Subscription.ID.String(),
			Status:          mapStatus(ctx, config.PlatformB, subscriptionStatuses, p.Subscription.Status, models.SubscriptionStatusActive),
			PlanName:        p.Subscription.Plan.Name,
			Amount:          amount,
			Product:         product,
			RenewedAt:       timeOr(p.ApprovedDate, occurredAt),
			NextChargeAt:    optionalTime(p.Subscription.NextPayment),
		}, nil
	}

	facts := orderFacts{
		envelope:      envelope,
		orderRef:      p.OrderID.String(),
		status:        mapStatus(ctx, config.PlatformB, platformBStatuses, p.OrderStatus, models.OrderStatusPending),
		amount:        amount,
		fee:           fromCents(p.Commissions.PlatformFee),
		currency:      p.Commissions.Currency,
		paymentMethod: p.PaymentMethod,
		installments:  p.Installments,
		paidAt:        timeOr(p.ApprovedDate, occurredAt),
		refundReason:  p.RefundReason,
		items:         []Item{product},
	}
	return facts.event(), nil
}

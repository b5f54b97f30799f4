package normalizer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// platformAPayload: decimal amounts, millisecond timestamps, one product
// per purchase.
type platformAPayload struct {
	ID           string `json:"id"`
	Event        string `json:"event"`
	CreationDate int64  `json:"creation_date"`
	Data         struct {
		Product struct {
			ID   flexString `json:"id" validate:"required"`
			Name string     `json:"name"`
		} `json:"product"`
		Buyer struct {
			Email         string `json:"email"`
			Name          string `json:"name"`
			CheckoutPhone string `json:"checkout_phone"`
			Document      string `json:"document"`
		} `json:"buyer"`
		Purchase struct {
			Transaction string `json:"transaction" validate:"required"`
			Status      string `json:"status" validate:"required"`
			Price       struct {
				Value         *decimal.Decimal `json:"value" validate:"required"`
				CurrencyValue string           `json:"currency_value"`
			} `json:"price"`
			Payment struct {
				Type               string `json:"type"`
				InstallmentsNumber int    `json:"installments_number"`
			} `json:"payment"`
			OrderDate    int64  `json:"order_date"`
			ApprovedDate int64  `json:"approved_date"`
			RefundReason string `json:"refund_reason"`
		} `json:"purchase"`
		Commission struct {
			Value decimal.Decimal `json:"value"`
		} `json:"commission"`
		Tracking trackingPayload `json:"tracking"`
	} `json:"data"`
}

type platformA struct {
	now Clock
}

// NewPlatformA returns the normalizer for platform A. A nil clock uses the
// system time.
func NewPlatformA(now Clock) Normalizer {
	if now == nil {
		now = systemClock
	}
	return &platformA{now: now}
}

func (n *platformA) Platform() string { return config.PlatformA }

func (n *platformA) Normalize(ctx context.Context, payload []byte) (Event, error) {
	var p platformAPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	d := p.Data
	occurredAt := unixMilliOr(p.CreationDate, n.now())
	amount := money(*d.Purchase.Price.Value)

	facts := orderFacts{
		envelope: Envelope{
			Platform:   config.PlatformA,
			OccurredAt: occurredAt,
			Customer:   newCustomer(d.Buyer.Email, d.Buyer.Document, d.Buyer.Name, d.Buyer.CheckoutPhone),
			Touch:      d.Tracking.touch(),
		},
		orderRef:      d.Purchase.Transaction,
		status:        mapStatus(ctx, config.PlatformA, platformAStatuses, d.Purchase.Status, models.OrderStatusPending),
		amount:        amount,
		fee:           money(d.Commission.Value),
		currency:      d.Purchase.Price.CurrencyValue,
		paymentMethod: d.Purchase.Payment.Type,
		installments:  d.Purchase.Payment.InstallmentsNumber,
		paidAt:        unixMilliOr(d.Purchase.ApprovedDate, occurredAt),
		refundReason:  d.Purchase.RefundReason,
		items: []Item{{
			Ref:       d.Product.ID.String(),
			Name:      d.Product.Name,
			Quantity:  1,
			UnitPrice: amount,
		}},
	}
	return facts.event(), nil
}

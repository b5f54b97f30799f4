package normalizer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/config"
)

// PlatformCRequiredFields must be present at the top level of every
// platform C delivery. The platform does not sign its webhooks, so this
// check is the receiver's only gate.
var PlatformCRequiredFields = []string{"trans_cod", "trans_status", "product_cod"}

// platformCPayload is flat; amounts are decimal strings that may use a
// comma separator.
type platformCPayload struct {
	EventName       string     `json:"event_name"`
	TransCod        flexString `json:"trans_cod" validate:"required"`
	TransStatus     flexString `json:"trans_status" validate:"required"`
	TransValue      flexString `json:"trans_value"`
	TransFee        flexString `json:"trans_fee"`
	TransPayment    string     `json:"trans_payment"`
	TransInstalls   int        `json:"trans_installments"`
	TransQuantity   int        `json:"trans_qnt"`
	TransCreateDate string     `json:"trans_createdate"`
	TransPaidDate   string     `json:"trans_paiddate"`
	TransRefundWhy  string     `json:"trans_refund_reason"`
	ProductCod      flexString `json:"product_cod" validate:"required"`
	ProductName     string     `json:"product_name"`
	CusEmail        string     `json:"cus_email"`
	CusName         string     `json:"cus_name"`
	CusCel          string     `json:"cus_cel"`
	CusTaxNumber    string     `json:"cus_taxnumber"`
	trackingPayload
}

type platformC struct {
	now Clock
}

func NewPlatformC(now Clock) Normalizer {
	if now == nil {
		now = systemClock
	}
	return &platformC{now: now}
}

func (n *platformC) Platform() string { return config.PlatformC }

func (n *platformC) Normalize(ctx context.Context, payload []byte) (Event, error) {
	var p platformCPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	amount, err := parseLocaleDecimal(p.TransValue.String())
	if err != nil {
		return nil, err
	}
	fee, err := parseLocaleDecimal(p.TransFee.String())
	if err != nil {
		return nil, err
	}

	quantity := p.TransQuantity
	if quantity <= 0 {
		quantity = 1
	}
	unitPrice := amount
	if quantity > 1 {
		unitPrice = money(amount.DivRound(decimal.NewFromInt(int64(quantity)), 2))
	}

	occurredAt := timeOr(p.TransCreateDate, n.now())
	facts := orderFacts{
		envelope: Envelope{
			Platform:   config.PlatformC,
			OccurredAt: occurredAt,
			Customer:   newCustomer(p.CusEmail, p.CusTaxNumber, p.CusName, p.CusCel),
			Touch:      p.trackingPayload.touch(),
		},
		orderRef:      p.TransCod.String(),
		status:        mapStatus(ctx, config.PlatformC, platformCStatuses, p.TransStatus.String(), models.OrderStatusPending),
		amount:        amount,
		fee:           fee,
		currency:      "BRL",
		paymentMethod: p.TransPayment,
		installments:  p.TransInstalls,
		paidAt:        timeOr(p.TransPaidDate, occurredAt),
		refundReason:  p.TransRefundWhy,
		items: []Item{{
			Ref:       p.ProductCod.String(),
			Name:      p.ProductName,
			Quantity:  quantity,
			UnitPrice: unitPrice,
		}},
	}
	return facts.event(), nil
}

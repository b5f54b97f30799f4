package processor

import (
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/TrackFox/internal/pkg/normalizer"
)

func amountOf(event normalizer.Event) decimal.Decimal {
	switch ev := event.(type) {
	case *normalizer.OrderCreated:
		return ev.Amount
	case *normalizer.OrderPaid:
		return ev.Amount
	case *normalizer.Refund:
		return ev.Amount.Neg()
	case *normalizer.Chargeback:
		return ev.Amount.Neg()
	case *normalizer.SubscriptionRenewed:
		return ev.Amount
	}
	return decimal.Zero
}

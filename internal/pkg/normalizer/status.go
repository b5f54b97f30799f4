package normalizer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/app/models"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

var platformAStatuses = map[string]string{
	"approved":        models.OrderStatusPaid,
	"complete":        models.OrderStatusPaid,
	"completed":       models.OrderStatusPaid,
	"refunded":        models.OrderStatusRefunded,
	"chargeback":      models.OrderStatusChargeback,
	"dispute":         models.OrderStatusChargeback,
	"canceled":        models.OrderStatusCanceled,
	"cancelled":       models.OrderStatusCanceled,
	"expired":         models.OrderStatusCanceled,
	"refused":         models.OrderStatusCanceled,
	"waiting_payment": models.OrderStatusPending,
	"billet_printed":  models.OrderStatusPending,
	"pending":         models.OrderStatusPending,
	"started":         models.OrderStatusPending,
	"delayed":         models.OrderStatusPending,
}

var platformBStatuses = map[string]string{
	"paid":            models.OrderStatusPaid,
	"approved":        models.OrderStatusPaid,
	"refunded":        models.OrderStatusRefunded,
	"chargedback":     models.OrderStatusChargeback,
	"chargeback":      models.OrderStatusChargeback,
	"refused":         models.OrderStatusCanceled,
	"canceled":        models.OrderStatusCanceled,
	"waiting_payment": models.OrderStatusPending,
	"pending":         models.OrderStatusPending,
	"processing":      models.OrderStatusPending,
}

// Platform C sends numeric transaction status codes.
var platformCStatuses = map[string]string{
	"1":  models.OrderStatusPending, // open
	"2":  models.OrderStatusPending, // processing
	"3":  models.OrderStatusPaid,
	"4":  models.OrderStatusCanceled,
	"6":  models.OrderStatusPending, // awaiting refund
	"7":  models.OrderStatusRefunded,
	"10": models.OrderStatusCanceled, // expired
	"11": models.OrderStatusPending,  // under review
	"15": models.OrderStatusChargeback,
}

var subscriptionStatuses = map[string]string{
	"active":   models.SubscriptionStatusActive,
	"paid":     models.SubscriptionStatusActive,
	"past_due": models.SubscriptionStatusPastDue,
	"late":     models.SubscriptionStatusPastDue,
	"canceled": models.SubscriptionStatusCanceled,
	"inactive": models.SubscriptionStatusCanceled,
}

var enrollmentStatuses = map[string]string{
	"active":    models.EnrollmentStatusActive,
	"enrolled":  models.EnrollmentStatusActive,
	"canceled":  models.EnrollmentStatusCanceled,
	"cancelled": models.EnrollmentStatusCanceled,
	"expired":   models.EnrollmentStatusExpired,
}

// mapStatus looks raw up in table. Unknown values fall back to def and are
// logged at warn level so they can be added to the table.
func mapStatus(ctx context.Context, platform string, table map[string]string, raw, def string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := table[key]; ok {
		return mapped
	}
	logger.FromContext(ctx).Warn("unknown platform status, using default",
		zap.String("platform", platform),
		zap.String("raw_status", raw),
		zap.String("default", def),
	)
	return def
}

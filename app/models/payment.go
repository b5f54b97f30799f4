package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundReasonChargeback marks refund rows written for chargebacks.
const RefundReasonChargeback = "chargeback"

// Payment and Refund rows are unique per raw event so a reprocessed
// delivery cannot book the same money twice.
type Payment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	RawEventID   uint            `gorm:"not null;uniqueIndex:ux_payments_raw_event" json:"raw_event_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Fee          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fee"`
	Method       string          `gorm:"type:varchar(50);not null;default:''" json:"method"`
	Installments int             `gorm:"not null;default:1" json:"installments"`
	PaidAt       time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type Refund struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	RawEventID uint            `gorm:"not null;uniqueIndex:ux_refunds_raw_event" json:"raw_event_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason     string          `gorm:"type:varchar(255);not null;default:''" json:"reason"`
	RefundedAt time.Time       `gorm:"not null" json:"refunded_at"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

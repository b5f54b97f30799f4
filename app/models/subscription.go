package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

type Subscription struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	Platform               string          `gorm:"type:varchar(32);not null;index:ux_subscriptions_platform_ref,unique,priority:1" json:"platform"`
	PlatformSubscriptionID string          `gorm:"type:varchar(191);not null;index:ux_subscriptions_platform_ref,unique,priority:2" json:"platform_subscription_id"`
	CustomerID             uint            `gorm:"not null;index" json:"customer_id"`
	ProductID              uint            `gorm:"not null;index" json:"product_id"`
	Status                 string          `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	PlanName               string          `gorm:"type:varchar(191);not null;default:''" json:"plan_name"`
	Amount                 decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	LastRenewedAt          *time.Time      `gorm:"type:timestamp;default:null" json:"last_renewed_at,omitempty"`
	NextChargeAt           *time.Time      `gorm:"type:timestamp;default:null" json:"next_charge_at,omitempty"`
	CreatedAt              time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

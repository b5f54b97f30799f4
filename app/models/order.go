package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusRefunded   = "refunded"
	OrderStatusChargeback = "chargeback"
	OrderStatusCanceled   = "canceled"
)

// Order is keyed by (platform, platform_order_id). LastStatusAt is the
// platform timestamp of the event that last wrote Status.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Platform        string          `gorm:"type:varchar(32);not null;index:ux_orders_platform_ref,unique,priority:1" json:"platform"`
	PlatformOrderID string          `gorm:"type:varchar(191);not null;index:ux_orders_platform_ref,unique,priority:2" json:"platform_order_id"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	Status          string          `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Fee             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fee"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'BRL'" json:"currency"`
	PaymentMethod   string          `gorm:"type:varchar(50);not null;default:''" json:"payment_method"`
	Installments    int             `gorm:"not null;default:1" json:"installments"`
	OrderedAt       *time.Time      `gorm:"type:timestamp;default:null" json:"ordered_at,omitempty"`
	PaidAt          *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	LastStatusAt    *time.Time      `gorm:"type:timestamp;default:null" json:"last_status_at,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index:ux_order_items_order_product,unique,priority:1" json:"order_id"`
	ProductID uint            `gorm:"not null;index:ux_order_items_order_product,unique,priority:2" json:"product_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

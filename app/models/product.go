package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Platform          string          `gorm:"type:varchar(32);not null;index:ux_products_platform_ref,unique,priority:1" json:"platform"`
	PlatformProductID string          `gorm:"type:varchar(191);not null;index:ux_products_platform_ref,unique,priority:2" json:"platform_product_id"`
	Name              string          `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

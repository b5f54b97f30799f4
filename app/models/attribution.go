package models

import "time"

const (
	AttributionSourceInline = "inline"
	AttributionSourcePixel  = "pixel"
)

// TouchFields are the marketing parameters of a visit. An empty string
// means the parameter was not present.
type TouchFields struct {
	UTMSource   string `gorm:"column:utm_source;type:varchar(191);not null;default:''" json:"utm_source,omitempty"`
	UTMMedium   string `gorm:"column:utm_medium;type:varchar(191);not null;default:''" json:"utm_medium,omitempty"`
	UTMCampaign string `gorm:"column:utm_campaign;type:varchar(191);not null;default:''" json:"utm_campaign,omitempty"`
	UTMContent  string `gorm:"column:utm_content;type:varchar(191);not null;default:''" json:"utm_content,omitempty"`
	UTMTerm     string `gorm:"column:utm_term;type:varchar(191);not null;default:''" json:"utm_term,omitempty"`
	Fbclid      string `gorm:"column:fbclid;type:varchar(255);not null;default:''" json:"fbclid,omitempty"`
	Gclid       string `gorm:"column:gclid;type:varchar(255);not null;default:''" json:"gclid,omitempty"`
}

// Attribution is the marketing source credited for an order.
type Attribution struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	OrderID      uint        `gorm:"not null;uniqueIndex:ux_attributions_order" json:"order_id"`
	Source       string      `gorm:"type:varchar(16);not null" json:"source"`
	TouchFields  TouchFields `gorm:"embedded" json:"touch"`
	FirstTouchAt time.Time   `gorm:"not null" json:"first_touch_at"`
	LastTouchAt  time.Time   `gorm:"not null" json:"last_touch_at"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

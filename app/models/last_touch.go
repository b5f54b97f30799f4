package models

import "time"

// LastTouch holds the most recent marketing touch of a pixel visitor. There
// is at most one row per visitor. TouchedAt only advances on non-direct
// touches, LastSeenAt on every hit and drives the TTL purge.
type LastTouch struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	VisitorID   string      `gorm:"type:varchar(191);not null;uniqueIndex:ux_last_touches_visitor" json:"visitor_id"`
	Email       *string     `gorm:"type:varchar(191);index:idx_last_touches_email_touched,priority:1" json:"email,omitempty"`
	CPF         *string     `gorm:"column:cpf;type:varchar(14);index:idx_last_touches_cpf_touched,priority:1" json:"cpf,omitempty"`
	TouchFields TouchFields `gorm:"embedded" json:"touch"`
	LandingPage string      `gorm:"type:varchar(2048);not null;default:''" json:"landing_page"`
	IsDirect    bool        `gorm:"not null;default:false" json:"is_direct"`
	TouchedAt   time.Time   `gorm:"not null;index:idx_last_touches_email_touched,priority:2;index:idx_last_touches_cpf_touched,priority:2" json:"touched_at"`
	LastSeenAt  time.Time   `gorm:"not null;index" json:"last_seen_at"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

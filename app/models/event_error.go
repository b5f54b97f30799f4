package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventError records a delivery that failed verification or normalization.
type EventError struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Platform   string         `gorm:"type:varchar(32);not null;index" json:"platform"`
	RawEventID *uint          `gorm:"index" json:"raw_event_id,omitempty"`
	Reason     string         `gorm:"type:text;not null" json:"reason"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

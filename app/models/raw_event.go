package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawEvent is a webhook delivery exactly as received. The hash column is the
// dedup key; apart from the processing bookkeeping a row is never updated.
type RawEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Platform        string         `gorm:"type:varchar(32);not null;index" json:"platform"`
	EventType       string         `gorm:"type:varchar(100);not null;default:''" json:"event_type"`
	Payload         datatypes.JSON `gorm:"not null" json:"payload"`
	Hash            string         `gorm:"type:char(64);not null;uniqueIndex:ux_raw_events_hash" json:"hash"`
	ImportTag       *string        `gorm:"type:varchar(100);default:null" json:"import_tag,omitempty"`
	ReceivedAt      time.Time      `gorm:"not null;index" json:"received_at"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null;index" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error"`
	Attempts        int            `gorm:"not null;default:0" json:"attempts"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsProcessed reports whether the processor reached a final outcome.
func (e *RawEvent) IsProcessed() bool {
	return e != nil && e.ProcessedAt != nil
}

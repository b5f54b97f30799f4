package models

import "time"

const (
	EnrollmentStatusActive   = "active"
	EnrollmentStatusCanceled = "canceled"
	EnrollmentStatusExpired  = "expired"
)

type Enrollment struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Platform             string     `gorm:"type:varchar(32);not null;index:ux_enrollments_platform_ref,unique,priority:1" json:"platform"`
	PlatformEnrollmentID string     `gorm:"type:varchar(191);not null;index:ux_enrollments_platform_ref,unique,priority:2" json:"platform_enrollment_id"`
	CustomerID           uint       `gorm:"not null;index" json:"customer_id"`
	ProductID            uint       `gorm:"not null;index" json:"product_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	EnrolledAt           time.Time  `gorm:"not null" json:"enrolled_at"`
	ExpiresAt            *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

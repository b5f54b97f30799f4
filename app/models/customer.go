package models

import "time"

// Customer is identified by email, or by CPF when no email was ever seen.
// Email and CPF are first-writer-wins; name and phone follow the latest event.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     *string   `gorm:"type:varchar(191);uniqueIndex:ux_customers_email" json:"email,omitempty"`
	CPF       *string   `gorm:"column:cpf;type:varchar(14);index" json:"cpf,omitempty"`
	Name      string    `gorm:"type:varchar(191);not null;default:''" json:"name"`
	Phone     string    `gorm:"type:varchar(32);not null;default:''" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

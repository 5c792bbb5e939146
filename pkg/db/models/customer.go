package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Customer is the account a credit ledger hangs off. CreditsCents is the
// running balance and always equals the sum of the account's credit entries.
type Customer struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Phone        string     `gorm:"column:phone;not null"`
	Email        *string    `gorm:"column:email"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	CreditsCents int64      `gorm:"column:credits_cents;not null;default:0"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks live price/stock per (fulfiller, product) pair.
type InventoryItem struct {
	FulfillerID    uuid.UUID  `gorm:"column:fulfiller_id;type:uuid;primaryKey"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;primaryKey"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null;default:0"`
	ExpiresAt      *time.Time `gorm:"column:expires_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

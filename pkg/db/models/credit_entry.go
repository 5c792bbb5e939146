package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// CreditEntry records an immutable credit ledger event for a customer.
// AmountCents is signed: earn/refund/bonus entries are positive, use entries
// negative. BalanceAfterCents snapshots the running balance after the entry.
type CreditEntry struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	Type              enums.CreditEntryType `gorm:"column:type;type:text;not null"`
	AmountCents       int64                 `gorm:"column:amount_cents;not null"`
	Description       string                `gorm:"column:description;not null"`
	OrderID           *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	BalanceAfterCents int64                 `gorm:"column:balance_after_cents;not null"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// ReturnRequest is a customer's request to return a subset of a delivered
// order's items.
type ReturnRequest struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                 `gorm:"column:order_id;type:uuid;not null"`
	CustomerID        uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null"`
	Status            enums.ReturnRequestStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Reason            string                    `gorm:"column:reason;not null"`
	RefundAmountCents int64                     `gorm:"column:refund_amount_cents;not null"`
	AdminNotes        *string                   `gorm:"column:admin_notes"`
	ProcessedBy       *uuid.UUID                `gorm:"column:processed_by;type:uuid"`
	ProcessedAt       *time.Time                `gorm:"column:processed_at"`
	Items             []ReturnRequestItem       `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnRequestItem is one order item affected by a return request.
type ReturnRequestItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID `gorm:"column:return_request_id;type:uuid;not null"`
	OrderItemID     uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	Quantity        int       `gorm:"column:quantity;not null"`
	Reason          *string   `gorm:"column:reason"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
	"github.com/Icecubesaad/cura-backend/pkg/types"
)

// Order is the parent order a customer places; its line items are grouped by
// fulfiller into sub-orders and its status is derived from theirs.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	CustomerPhone    string              `gorm:"column:customer_phone;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	SubtotalCents    int64               `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int64               `gorm:"column:delivery_fee_cents;not null;default:0"`
	TaxCents         int64               `gorm:"column:tax_cents;not null;default:0"`
	TotalCents       int64               `gorm:"column:total_cents;not null"`
	CreditsUsedCents int64               `gorm:"column:credits_used_cents;not null;default:0"`
	FinalAmountCents int64               `gorm:"column:final_amount_cents;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	DeliveryAddress  *types.Address      `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	PrescriptionID   *uuid.UUID          `gorm:"column:prescription_id;type:uuid"`
	CancelReason     *string             `gorm:"column:cancel_reason"`
	CancelledBy      *uuid.UUID          `gorm:"column:cancelled_by;type:uuid"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	SubOrders        []SubOrder          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory    []OrderStatusChange `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ReturnRequests   []ReturnRequest     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// SubOrder is the slice of an order assigned to one fulfiller, with its own
// status. The sum of sub-order subtotals always equals the parent subtotal.
type SubOrder struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	FulfillerID   uuid.UUID           `gorm:"column:fulfiller_id;type:uuid;not null"`
	FulfillerKind enums.FulfillerKind `gorm:"column:fulfiller_kind;type:text;not null;default:'pharmacy'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	SubtotalCents int64               `gorm:"column:subtotal_cents;not null"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the snapshot of one ordered line.
type OrderItem struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	SubOrderID           uuid.UUID              `gorm:"column:sub_order_id;type:uuid;not null"`
	ProductID            uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	ProductName          string                 `gorm:"column:product_name;not null"`
	FulfillerID          uuid.UUID              `gorm:"column:fulfiller_id;type:uuid;not null"`
	Quantity             int                    `gorm:"column:quantity;not null"`
	UnitPriceCents       int64                  `gorm:"column:unit_price_cents;not null"`
	TotalCents           int64                  `gorm:"column:total_cents;not null"`
	PrescriptionRequired bool                   `gorm:"column:prescription_required;not null;default:false"`
	ReturnStatus         enums.ItemReturnStatus `gorm:"column:return_status;type:text;not null;default:'not_returned'"`
	ReturnReason         *string                `gorm:"column:return_reason"`
	ReturnRequestedAt    *time.Time             `gorm:"column:return_requested_at"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderStatusChange is one append-only status history row for an order.
type OrderStatusChange struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole enums.Role        `gorm:"column:actor_role;type:text;not null"`
	ActorName string            `gorm:"column:actor_name;not null"`
	Notes     *string           `gorm:"column:notes"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

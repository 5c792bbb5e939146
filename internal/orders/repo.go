package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Repository manages persistence for orders, sub-orders, items and returns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListSubOrdersByFulfiller(ctx context.Context, fulfillerID uuid.UUID, limit, offset int) ([]models.SubOrder, error)
	UpdateStatus(ctx context.Context, params StatusUpdate) (bool, error)
	UpdateSubOrderStatus(ctx context.Context, params SubOrderStatusUpdate) (bool, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error)
	AppendHistory(ctx context.Context, change *models.OrderStatusChange) error
	UpdateItemReturnStatus(ctx context.Context, params ItemReturnUpdate) (int64, error)
	CreateReturnRequest(ctx context.Context, req *models.ReturnRequest) error
	FindReturnRequest(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	ListReturnRequests(ctx context.Context, status enums.ReturnRequestStatus, limit, offset int) ([]models.ReturnRequest, error)
	UpdateReturnRequest(ctx context.Context, params ReturnRequestUpdate) (bool, error)
}

// StatusUpdate describes a guarded order status move. The update applies only
// while the row still carries FromStatus; a lost race leaves zero rows
// affected.
type StatusUpdate struct {
	OrderID      uuid.UUID
	FromStatus   enums.OrderStatus
	ToStatus     enums.OrderStatus
	CancelReason *string
	CancelledBy  *uuid.UUID
	DeliveredAt  *time.Time
}

// SubOrderStatusUpdate describes a guarded sub-order status move.
type SubOrderStatusUpdate struct {
	SubOrderID  uuid.UUID
	FromStatus  enums.OrderStatus
	ToStatus    enums.OrderStatus
	DeliveredAt *time.Time
}

// ItemReturnUpdate moves a set of order items from FromStatus to Status. The
// update only touches rows still in FromStatus, so callers compare the
// affected count against len(ItemIDs) to detect a lost race. ClearMetadata
// resets the reason and timestamp, used when a request is rejected.
type ItemReturnUpdate struct {
	ItemIDs       []uuid.UUID
	FromStatus    enums.ItemReturnStatus
	Status        enums.ItemReturnStatus
	Reason        *string
	RequestedAt   *time.Time
	ClearMetadata bool
}

// ReturnRequestUpdate describes a guarded return request status move.
type ReturnRequestUpdate struct {
	RequestID   uuid.UUID
	FromStatus  enums.ReturnRequestStatus
	ToStatus    enums.ReturnRequestStatus
	AdminNotes  *string
	ProcessedBy *uuid.UUID
	ProcessedAt *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("ReturnRequests").
		Preload("ReturnRequests.Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	var sub models.SubOrder
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSubOrdersByFulfiller(ctx context.Context, fulfillerID uuid.UUID, limit, offset int) ([]models.SubOrder, error) {
	var rows []models.SubOrder
	if err := r.db.WithContext(ctx).
		Where("fulfiller_id = ?", fulfillerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus performs the compare-and-set transition on the parent order.
// Returns false when the row was missing or no longer in FromStatus.
func (r *repository) UpdateStatus(ctx context.Context, params StatusUpdate) (bool, error) {
	updates := map[string]any{
		"status":     params.ToStatus,
		"updated_at": time.Now().UTC(),
	}
	if params.CancelReason != nil {
		updates["cancel_reason"] = *params.CancelReason
	}
	if params.CancelledBy != nil {
		updates["cancelled_by"] = *params.CancelledBy
	}
	if params.DeliveredAt != nil {
		updates["delivered_at"] = *params.DeliveredAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", params.OrderID, params.FromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateSubOrderStatus(ctx context.Context, params SubOrderStatusUpdate) (bool, error) {
	updates := map[string]any{
		"status":     params.ToStatus,
		"updated_at": time.Now().UTC(),
	}
	if params.DeliveredAt != nil {
		updates["delivered_at"] = *params.DeliveredAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", params.SubOrderID, params.FromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, from).
		Updates(map[string]any{
			"payment_status": to,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendHistory(ctx context.Context, change *models.OrderStatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repository) UpdateItemReturnStatus(ctx context.Context, params ItemReturnUpdate) (int64, error) {
	if len(params.ItemIDs) == 0 {
		return 0, nil
	}
	updates := map[string]any{
		"return_status": params.Status,
		"updated_at":    time.Now().UTC(),
	}
	if params.Reason != nil {
		updates["return_reason"] = *params.Reason
	}
	if params.RequestedAt != nil {
		updates["return_requested_at"] = *params.RequestedAt
	}
	if params.ClearMetadata {
		updates["return_reason"] = nil
		updates["return_requested_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id IN ? AND return_status = ?", params.ItemIDs, params.FromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) CreateReturnRequest(ctx context.Context, req *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindReturnRequest(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var req models.ReturnRequest
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListReturnRequests returns requests newest first, optionally filtered by
// status. An empty status lists all of them.
func (r *repository) ListReturnRequests(ctx context.Context, status enums.ReturnRequestStatus, limit, offset int) ([]models.ReturnRequest, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.ReturnRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateReturnRequest(ctx context.Context, params ReturnRequestUpdate) (bool, error) {
	updates := map[string]any{
		"status":     params.ToStatus,
		"updated_at": time.Now().UTC(),
	}
	if params.AdminNotes != nil {
		updates["admin_notes"] = *params.AdminNotes
	}
	if params.ProcessedBy != nil {
		updates["processed_by"] = *params.ProcessedBy
	}
	if params.ProcessedAt != nil {
		updates["processed_at"] = *params.ProcessedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", params.RequestID, params.FromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  credits_used_cents INTEGER NOT NULL DEFAULT 0,
  final_amount_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  delivery_address TEXT,
  prescription_id TEXT,
  cancel_reason TEXT,
  cancelled_by TEXT,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS sub_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  fulfiller_id TEXT NOT NULL,
  fulfiller_kind TEXT NOT NULL DEFAULT 'pharmacy',
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal_cents INTEGER NOT NULL,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sub_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  fulfiller_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  prescription_required INTEGER NOT NULL DEFAULT 0,
  return_status TEXT NOT NULL DEFAULT 'not_returned',
  return_reason TEXT,
  return_requested_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_status_changes (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  actor_name TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS return_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  reason TEXT NOT NULL,
  refund_amount_cents INTEGER NOT NULL,
  admin_notes TEXT,
  processed_by TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS return_request_items (
  id TEXT PRIMARY KEY,
  return_request_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  reason TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedOrder(t *testing.T, repo Repository) *models.Order {
	t.Helper()

	orderID := uuid.New()
	subID := uuid.New()
	fulfillerID := uuid.New()
	order := &models.Order{
		ID:               orderID,
		OrderNumber:      "ORD" + uuid.NewString()[:8],
		CustomerID:       uuid.New(),
		CustomerName:     "Customer",
		CustomerPhone:    "+20100",
		Status:           enums.OrderStatusPending,
		SubtotalCents:    20000,
		DeliveryFeeCents: 2000,
		TaxCents:         2800,
		TotalCents:       24800,
		FinalAmountCents: 24800,
		PaymentMethod:    enums.PaymentMethodCash,
		PaymentStatus:    enums.PaymentStatusPending,
		SubOrders: []models.SubOrder{{
			ID:            subID,
			OrderID:       orderID,
			FulfillerID:   fulfillerID,
			FulfillerKind: enums.FulfillerKindPharmacy,
			Status:        enums.OrderStatusPending,
			SubtotalCents: 20000,
		}},
		Items: []models.OrderItem{{
			ID:             uuid.New(),
			OrderID:        orderID,
			SubOrderID:     subID,
			ProductID:      uuid.New(),
			ProductName:    "Paracetamol 500mg",
			FulfillerID:    fulfillerID,
			Quantity:       2,
			UnitPriceCents: 10000,
			TotalCents:     20000,
			ReturnStatus:   enums.ItemReturnStatusNotReturned,
		}},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestRepository_CreatePersistsTree(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)

	reloaded, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.SubOrders, 1)
	assert.Len(t, reloaded.Items, 1)
	assert.Equal(t, order.SubOrders[0].ID, reloaded.Items[0].SubOrderID)
}

func TestRepository_UpdateStatusCompareAndSet(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)

	ok, err := repo.UpdateStatus(ctx, StatusUpdate{
		OrderID:    order.ID,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusConfirmed,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// stale writer guessing the old status loses
	ok, err = repo.UpdateStatus(ctx, StatusUpdate{
		OrderID:    order.ID,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)
}

func TestRepository_UpdateSubOrderStatus(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)
	subID := order.SubOrders[0].ID
	deliveredAt := time.Now().UTC()

	ok, err := repo.UpdateSubOrderStatus(ctx, SubOrderStatusUpdate{
		SubOrderID:  subID,
		FromStatus:  enums.OrderStatusPending,
		ToStatus:    enums.OrderStatusDelivered,
		DeliveredAt: &deliveredAt,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	sub, err := repo.FindSubOrder(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, sub.Status)
	assert.NotNil(t, sub.DeliveredAt)
}

func TestRepository_UpdatePaymentStatusGuard(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)

	ok, err := repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPending, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	// double confirmation leaves zero rows affected
	ok, err = repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPending, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_ItemReturnRoundTrip(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)
	itemID := order.Items[0].ID
	reason := "damaged packaging"
	requestedAt := time.Now().UTC()

	affected, err := repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
		ItemIDs:     []uuid.UUID{itemID},
		FromStatus:  enums.ItemReturnStatusNotReturned,
		Status:      enums.ItemReturnStatusReturnRequested,
		Reason:      &reason,
		RequestedAt: &requestedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ItemReturnStatusReturnRequested, reloaded.Items[0].ReturnStatus)
	require.NotNil(t, reloaded.Items[0].ReturnReason)
	assert.Equal(t, reason, *reloaded.Items[0].ReturnReason)

	// a second flagging from not_returned loses the guard
	affected, err = repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
		ItemIDs:     []uuid.UUID{itemID},
		FromStatus:  enums.ItemReturnStatusNotReturned,
		Status:      enums.ItemReturnStatusReturnRequested,
		Reason:      &reason,
		RequestedAt: &requestedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
		ItemIDs:       []uuid.UUID{itemID},
		FromStatus:    enums.ItemReturnStatusReturnRequested,
		Status:        enums.ItemReturnStatusNotReturned,
		ClearMetadata: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err = repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ItemReturnStatusNotReturned, reloaded.Items[0].ReturnStatus)
	assert.Nil(t, reloaded.Items[0].ReturnReason)
	assert.Nil(t, reloaded.Items[0].ReturnRequestedAt)
}

func TestRepository_ReturnRequestLifecycle(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)
	request := &models.ReturnRequest{
		ID:                uuid.New(),
		OrderID:           order.ID,
		CustomerID:        order.CustomerID,
		Status:            enums.ReturnRequestStatusRequested,
		Reason:            "damaged packaging",
		RefundAmountCents: 10000,
		Items: []models.ReturnRequestItem{{
			ID:          uuid.New(),
			OrderItemID: order.Items[0].ID,
			Quantity:    1,
		}},
	}
	require.NoError(t, repo.CreateReturnRequest(ctx, request))

	processedBy := uuid.New()
	processedAt := time.Now().UTC()
	ok, err := repo.UpdateReturnRequest(ctx, ReturnRequestUpdate{
		RequestID:   request.ID,
		FromStatus:  enums.ReturnRequestStatusRequested,
		ToStatus:    enums.ReturnRequestStatusApproved,
		ProcessedBy: &processedBy,
		ProcessedAt: &processedAt,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// a second decision on the same request loses the guard
	ok, err = repo.UpdateReturnRequest(ctx, ReturnRequestUpdate{
		RequestID:  request.ID,
		FromStatus: enums.ReturnRequestStatusRequested,
		ToStatus:   enums.ReturnRequestStatusRejected,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindReturnRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusApproved, reloaded.Status)
	assert.Len(t, reloaded.Items, 1)
	require.NotNil(t, reloaded.ProcessedBy)
	assert.Equal(t, processedBy, *reloaded.ProcessedBy)
}

func TestRepository_AppendHistoryOrdering(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo)
	for _, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed} {
		require.NoError(t, repo.AppendHistory(ctx, &models.OrderStatusChange{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    status,
			ActorID:   uuid.New(),
			ActorRole: enums.RoleAdmin,
			ActorName: "Admin",
		}))
	}

	reloaded, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.StatusHistory, 2)
	assert.Equal(t, enums.OrderStatusPending, reloaded.StatusHistory[0].Status)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.StatusHistory[1].Status)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/internal/credits"
	"github.com/Icecubesaad/cura-backend/internal/inventory"
	"github.com/Icecubesaad/cura-backend/internal/notifications"
	"github.com/Icecubesaad/cura-backend/internal/prescriptions"
	"github.com/Icecubesaad/cura-backend/internal/workflow"
	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
	"github.com/Icecubesaad/cura-backend/pkg/metrics"
	"github.com/Icecubesaad/cura-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

const orderSequence = "order_number"

// Service defines the order workflow: creation with multi-pharmacy
// decomposition, payment, fulfillment advancement and returns.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) error
	AdvanceSubOrderStatus(ctx context.Context, subOrderID uuid.UUID, target enums.OrderStatus, actor workflow.Actor) error
	Cancel(ctx context.Context, orderID uuid.UUID, actor workflow.Actor, reason string) error
	RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error)
	ProcessReturn(ctx context.Context, input ProcessReturnInput) error
	ListReturnRequests(ctx context.Context, actor workflow.Actor, params ReturnListParams) ([]models.ReturnRequest, error)
	Get(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Order, error)
	ListSubOrdersByFulfiller(ctx context.Context, fulfillerID uuid.UUID, params ListParams) ([]models.SubOrder, error)
}

type service struct {
	repo     Repository
	inv      inventory.Repository
	rx       prescriptions.Repository
	credits  credits.Service
	tx       txRunner
	seq      sequencer
	notifier notifications.Notifier
	metrics  *metrics.WorkflowMetrics
	cfg      config.WorkflowConfig
	now      func() time.Time
}

// CreateOrderInput carries everything a new order requires. Prices come from
// the fulfiller's inventory, never from the caller.
type CreateOrderInput struct {
	CustomerID        uuid.UUID
	CustomerName      string
	CustomerPhone     string
	PaymentMethod     enums.PaymentMethod
	DeliveryAddress   *types.Address
	PrescriptionID    *uuid.UUID
	CreditsToUseCents int64
	Items             []ItemInput
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID            uuid.UUID
	ProductName          string
	FulfillerID          uuid.UUID
	FulfillerKind        enums.FulfillerKind
	Quantity             int
	PrescriptionRequired bool
}

// ReturnInput is a customer's request to return items from a delivered order.
type ReturnInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Reason     string
	Items      []ReturnItemInput
}

// ReturnItemInput selects one order item and quantity to return.
type ReturnItemInput struct {
	OrderItemID uuid.UUID
	Quantity    int
	Reason      *string
}

// ProcessReturnInput is an admin's decision on a pending return request.
type ProcessReturnInput struct {
	ReturnRequestID uuid.UUID
	Actor           workflow.Actor
	Approve         bool
	AdminNotes      *string
}

// ListParams configures paging for order listings.
type ListParams struct {
	Limit  int
	Offset int
}

// ReturnListParams configures the admin return-request listing. An empty
// Status lists requests in every state.
type ReturnListParams struct {
	Status enums.ReturnRequestStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NewService wires the order workflow with its dependencies.
func NewService(
	repo Repository,
	inv inventory.Repository,
	rx prescriptions.Repository,
	creditsSvc credits.Service,
	tx txRunner,
	seq sequencer,
	notifier notifications.Notifier,
	wm *metrics.WorkflowMetrics,
	cfg config.WorkflowConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if rx == nil {
		return nil, fmt.Errorf("prescriptions repository required")
	}
	if creditsSvc == nil {
		return nil, fmt.Errorf("credits service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if seq == nil {
		return nil, fmt.Errorf("sequencer required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		inv:      inv,
		rx:       rx,
		credits:  creditsSvc,
		tx:       tx,
		seq:      seq,
		notifier: notifier,
		metrics:  wm,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateOrder prices the requested items against live inventory, groups them
// into one sub-order per fulfiller and persists the whole tree. Credits are
// deducted up front through the guarded ledger; an order fully covered by
// credits is created already paid.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrderInput(input); err != nil {
		return nil, err
	}

	orderID := uuid.New()
	now := s.now()

	subOrders, items, subtotal, err := s.buildSubOrders(ctx, orderID, input.Items, now)
	if err != nil {
		return nil, err
	}

	totals := computeTotals(subtotal, s.cfg)
	used, final := applyCredits(totals.TotalCents, input.CreditsToUseCents)

	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
	}

	paymentStatus := enums.PaymentStatusPending
	if final == 0 {
		paymentStatus = enums.PaymentStatusPaid
	}

	order := &models.Order{
		ID:               orderID,
		OrderNumber:      number,
		CustomerID:       input.CustomerID,
		CustomerName:     input.CustomerName,
		CustomerPhone:    input.CustomerPhone,
		Status:           enums.OrderStatusPending,
		SubtotalCents:    totals.SubtotalCents,
		DeliveryFeeCents: totals.DeliveryFeeCents,
		TaxCents:         totals.TaxCents,
		TotalCents:       totals.TotalCents,
		CreditsUsedCents: used,
		FinalAmountCents: final,
		PaymentMethod:    input.PaymentMethod,
		PaymentStatus:    paymentStatus,
		DeliveryAddress:  input.DeliveryAddress,
		PrescriptionID:   input.PrescriptionID,
		SubOrders:        subOrders,
		Items:            items,
	}

	var usedEntry *models.CreditEntry
	if used > 0 {
		usedEntry, err = s.credits.Use(ctx, credits.EntryInput{
			CustomerID:  input.CustomerID,
			AmountCents: used,
			Description: fmt.Sprintf("Credits applied to order %s", number),
			OrderID:     &orderID,
		})
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.PrescriptionID != nil {
			rxRepo := s.rx.WithTx(tx)
			rx, err := rxRepo.Find(ctx, *input.PrescriptionID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
			}
			if rx.CustomerID != input.CustomerID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "prescription belongs to another customer")
			}
			if rx.CurrentStatus != enums.PrescriptionStatusApproved {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("prescription in status %s cannot source an order", rx.CurrentStatus))
			}

			marked, err := rxRepo.MarkOrderCreated(ctx, *input.PrescriptionID, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark prescription ordered")
			}
			if !marked {
				return pkgerrors.New(pkgerrors.CodeConflict, "prescription already converted to an order")
			}
		}

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.appendHistory(ctx, repo, orderID, enums.OrderStatusPending, workflow.Actor{
			ID:   input.CustomerID,
			Role: enums.RoleCustomer,
			Name: input.CustomerName,
		}, nil); err != nil {
			return err
		}
		if paymentStatus == enums.PaymentStatusPaid {
			return s.awardEarnedCredits(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		if usedEntry != nil {
			if _, rerr := s.credits.Refund(ctx, credits.EntryInput{
				CustomerID:  input.CustomerID,
				AmountCents: used,
				Description: fmt.Sprintf("Reversal for failed order %s", number),
				OrderID:     &orderID,
			}); rerr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.Join(err, rerr), "create order")
			}
		}
		return nil, err
	}

	s.metrics.IncTransition(string(workflow.KindOrder), string(enums.OrderStatusPending))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventOrderCreated,
		Audience: notifications.AudienceCustomer(input.CustomerID),
		Payload: map[string]any{
			"order_id":     orderID.String(),
			"order_number": number,
			"total_cents":  totals.TotalCents,
			"final_cents":  final,
		},
	})

	if paymentStatus == enums.PaymentStatusPaid {
		if err := s.settle(ctx, order); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ConfirmPayment settles a pending order. The flip to paid is a
// compare-and-set, so a second confirmation gets a conflict, never a double
// settlement.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.findOrder(ctx, s.repo, orderID)
	if err != nil {
		return err
	}
	if actor.Role == enums.RoleCustomer && order.CustomerID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already paid")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).UpdatePaymentStatus(ctx, orderID, enums.PaymentStatusPending, enums.PaymentStatusPaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "order already paid")
		}
		return s.awardEarnedCredits(ctx, tx, order)
	})
	if err != nil {
		return err
	}

	order.PaymentStatus = enums.PaymentStatusPaid
	return s.settle(ctx, order)
}

// awardEarnedCredits posts the loyalty grant on the caller's transaction, so
// the entry commits or rolls back together with the payment flip.
func (s *service) awardEarnedCredits(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	earned := earnedCredits(order.TotalCents, s.cfg.CreditEarnRate)
	if earned == 0 {
		return nil
	}
	_, err := s.credits.WithTx(tx).Earn(ctx, credits.EntryInput{
		CustomerID:  order.CustomerID,
		AmountCents: earned,
		Description: fmt.Sprintf("Credits earned on order %s", order.OrderNumber),
		OrderID:     &order.ID,
	})
	return err
}

// settle applies the post-commit side effects of a completed payment:
// best-effort stock decrements and one notification per fulfiller limited to
// its own items.
func (s *service) settle(ctx context.Context, order *models.Order) error {
	for _, item := range order.Items {
		// insufficient stock at settlement time is skipped, not fatal
		if _, err := s.inv.DecrementStock(ctx, item.FulfillerID, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
	}

	itemsByFulfiller := map[uuid.UUID][]map[string]any{}
	for _, item := range order.Items {
		itemsByFulfiller[item.FulfillerID] = append(itemsByFulfiller[item.FulfillerID], map[string]any{
			"order_item_id": item.ID.String(),
			"product_id":    item.ProductID.String(),
			"product_name":  item.ProductName,
			"quantity":      item.Quantity,
		})
	}
	for fulfillerID, lines := range itemsByFulfiller {
		s.notifier.Notify(ctx, notifications.Event{
			Type:     notifications.EventOrderPaid,
			Audience: notifications.AudienceFulfiller(fulfillerID),
			Payload: map[string]any{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
				"items":        lines,
			},
		})
	}
	return nil
}

// AdvanceSubOrderStatus moves one fulfiller's sub-order forward and rederives
// the parent order status from all sub-orders.
func (s *service) AdvanceSubOrderStatus(ctx context.Context, subOrderID uuid.UUID, target enums.OrderStatus, actor workflow.Actor) error {
	if subOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", target))
	}

	var (
		order      *models.Order
		subStatus  enums.OrderStatus
		nextStatus enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub, err := repo.FindSubOrder(ctx, subOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find sub-order")
		}
		if (actor.Role == enums.RolePharmacy || actor.Role == enums.RoleVendor) && sub.FulfillerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sub-order belongs to another fulfiller")
		}
		if !workflow.CanTransitionOrder(sub.Status, target, actor.Role) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move sub-order from %s to %s", sub.Status, target))
		}

		update := SubOrderStatusUpdate{
			SubOrderID: subOrderID,
			FromStatus: sub.Status,
			ToStatus:   target,
		}
		if target == enums.OrderStatusDelivered {
			deliveredAt := s.now()
			update.DeliveredAt = &deliveredAt
		}
		updated, err := repo.UpdateSubOrderStatus(ctx, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance sub-order")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "sub-order changed concurrently")
		}
		subStatus = target

		order, err = s.findOrder(ctx, repo, sub.OrderID)
		if err != nil {
			return err
		}

		derived := deriveOrderStatus(order.Status, order.SubOrders)
		nextStatus = derived
		if derived == order.Status {
			return nil
		}

		parentUpdate := StatusUpdate{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   derived,
		}
		if derived == enums.OrderStatusDelivered {
			deliveredAt := s.now()
			parentUpdate.DeliveredAt = &deliveredAt
		}
		moved, err := repo.UpdateStatus(ctx, parentUpdate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}
		return s.appendHistory(ctx, repo, order.ID, derived, actor, nil)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition(string(workflow.KindOrder), string(subStatus))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventOrderStatusChanged,
		Audience: notifications.AudienceCustomer(order.CustomerID),
		Payload: map[string]any{
			"order_id":         order.ID.String(),
			"order_number":     order.OrderNumber,
			"sub_order_id":     subOrderID.String(),
			"sub_order_status": string(subStatus),
			"order_status":     string(nextStatus),
		},
	})
	return nil
}

// Cancel terminates an order and its sub-orders. Customers may only cancel
// before fulfillment starts; credits already applied flow back to the ledger.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor workflow.Actor, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := s.findOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		order = found

		if actor.Role == enums.RoleCustomer && order.CustomerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		if !workflow.CanTransitionOrder(order.Status, enums.OrderStatusCancelled, actor.Role) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		cancelledBy := actor.ID
		updated, err := repo.UpdateStatus(ctx, StatusUpdate{
			OrderID:      orderID,
			FromStatus:   order.Status,
			ToStatus:     enums.OrderStatusCancelled,
			CancelReason: &reason,
			CancelledBy:  &cancelledBy,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		for _, sub := range order.SubOrders {
			if sub.Status.IsTerminal() {
				continue
			}
			if _, err := repo.UpdateSubOrderStatus(ctx, SubOrderStatusUpdate{
				SubOrderID: sub.ID,
				FromStatus: sub.Status,
				ToStatus:   enums.OrderStatusCancelled,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel sub-order")
			}
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			if _, err := repo.UpdatePaymentStatus(ctx, orderID, enums.PaymentStatusPaid, enums.PaymentStatusRefunded); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment status")
			}
		}

		if err := s.appendHistory(ctx, repo, orderID, enums.OrderStatusCancelled, actor, &reason); err != nil {
			return err
		}

		if order.CreditsUsedCents > 0 {
			if _, err := s.credits.WithTx(tx).Refund(ctx, credits.EntryInput{
				CustomerID:  order.CustomerID,
				AmountCents: order.CreditsUsedCents,
				Description: fmt.Sprintf("Credits returned for cancelled order %s", order.OrderNumber),
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition(string(workflow.KindOrder), string(enums.OrderStatusCancelled))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventOrderCancelled,
		Audience: notifications.AudienceCustomer(order.CustomerID),
		Payload: map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"reason":       reason,
		},
	})
	for _, sub := range order.SubOrders {
		s.notifier.Notify(ctx, notifications.Event{
			Type:     notifications.EventOrderCancelled,
			Audience: notifications.AudienceFulfiller(sub.FulfillerID),
			Payload: map[string]any{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
				"sub_order_id": sub.ID.String(),
			},
		})
	}
	return nil
}

// RequestReturn opens a return request for delivered items still inside the
// return window. Each item can only sit in one open request at a time.
func (s *service) RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil || input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and customer ids required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.findOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
		}
		if order.DeliveredAt == nil || s.now().After(order.DeliveredAt.Add(s.cfg.ReturnWindow)) {
			return pkgerrors.New(pkgerrors.CodeReturnWindow, "return window has expired")
		}

		itemsByID := make(map[uuid.UUID]models.OrderItem, len(order.Items))
		for _, item := range order.Items {
			itemsByID[item.ID] = item
		}

		requestID := uuid.New()
		var refund int64
		var itemIDs []uuid.UUID
		rows := make([]models.ReturnRequestItem, 0, len(input.Items))
		for _, req := range input.Items {
			item, ok := itemsByID[req.OrderItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			if req.Quantity <= 0 || req.Quantity > item.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("invalid return quantity for item %s", item.ID))
			}
			if item.ReturnStatus != enums.ItemReturnStatusNotReturned {
				return pkgerrors.New(pkgerrors.CodeDuplicateReturn,
					fmt.Sprintf("item %s already has a return in progress", item.ID))
			}
			refund += item.UnitPriceCents * int64(req.Quantity)
			itemIDs = append(itemIDs, item.ID)
			rows = append(rows, models.ReturnRequestItem{
				ID:              uuid.New(),
				ReturnRequestID: requestID,
				OrderItemID:     req.OrderItemID,
				Quantity:        req.Quantity,
				Reason:          req.Reason,
			})
		}

		request = &models.ReturnRequest{
			ID:                requestID,
			OrderID:           input.OrderID,
			CustomerID:        input.CustomerID,
			Status:            enums.ReturnRequestStatusRequested,
			Reason:            input.Reason,
			RefundAmountCents: refund,
			Items:             rows,
		}
		if err := repo.CreateReturnRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}

		requestedAt := s.now()
		reason := input.Reason
		affected, err := repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
			ItemIDs:     itemIDs,
			FromStatus:  enums.ItemReturnStatusNotReturned,
			Status:      enums.ItemReturnStatusReturnRequested,
			Reason:      &reason,
			RequestedAt: &requestedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag returned items")
		}
		if affected != int64(len(itemIDs)) {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "items already have a return in progress")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventReturnRequested,
		Audience: notifications.AudienceAdmin,
		Payload: map[string]any{
			"return_request_id": request.ID.String(),
			"order_id":          input.OrderID.String(),
			"refund_cents":      request.RefundAmountCents,
		},
	})
	return request, nil
}

// ProcessReturn applies an admin decision to a pending return request.
// Approval refunds the computed amount to the credit ledger and marks the
// order refunded or partially refunded depending on what remains unreturned.
func (s *service) ProcessReturn(ctx context.Context, input ProcessReturnInput) error {
	if input.ReturnRequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins process returns")
	}

	target := enums.ReturnRequestStatusRejected
	if input.Approve {
		target = enums.ReturnRequestStatusApproved
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindReturnRequest(ctx, input.ReturnRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find return request")
		}
		request = found

		if request.Status != enums.ReturnRequestStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request already processed")
		}

		processedBy := input.Actor.ID
		processedAt := s.now()
		updated, err := repo.UpdateReturnRequest(ctx, ReturnRequestUpdate{
			RequestID:   input.ReturnRequestID,
			FromStatus:  enums.ReturnRequestStatusRequested,
			ToStatus:    target,
			AdminNotes:  input.AdminNotes,
			ProcessedBy: &processedBy,
			ProcessedAt: &processedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "return request changed concurrently")
		}

		itemIDs := make([]uuid.UUID, 0, len(request.Items))
		for _, item := range request.Items {
			itemIDs = append(itemIDs, item.OrderItemID)
		}

		if !input.Approve {
			affected, err := repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
				ItemIDs:       itemIDs,
				FromStatus:    enums.ItemReturnStatusReturnRequested,
				Status:        enums.ItemReturnStatusNotReturned,
				ClearMetadata: true,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset items")
			}
			if affected != int64(len(itemIDs)) {
				s.metrics.IncConflict(string(workflow.KindOrder))
				return pkgerrors.New(pkgerrors.CodeConflict, "return items changed concurrently")
			}
			return nil
		}

		affected, err := repo.UpdateItemReturnStatus(ctx, ItemReturnUpdate{
			ItemIDs:    itemIDs,
			FromStatus: enums.ItemReturnStatusReturnRequested,
			Status:     enums.ItemReturnStatusReturned,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark items returned")
		}
		if affected != int64(len(itemIDs)) {
			s.metrics.IncConflict(string(workflow.KindOrder))
			return pkgerrors.New(pkgerrors.CodeConflict, "return items changed concurrently")
		}

		order, err := s.findOrder(ctx, repo, request.OrderID)
		if err != nil {
			return err
		}
		allReturned := true
		for _, item := range order.Items {
			if item.ReturnStatus != enums.ItemReturnStatusReturned {
				allReturned = false
				break
			}
		}
		paymentTarget := enums.PaymentStatusPartiallyRefunded
		if allReturned {
			paymentTarget = enums.PaymentStatusRefunded
		}
		if _, err := repo.UpdatePaymentStatus(ctx, order.ID, order.PaymentStatus, paymentTarget); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		if request.RefundAmountCents > 0 {
			if _, err := s.credits.WithTx(tx).Refund(ctx, credits.EntryInput{
				CustomerID:  request.CustomerID,
				AmountCents: request.RefundAmountCents,
				Description: fmt.Sprintf("Refund for return request %s", request.ID),
				OrderID:     &request.OrderID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventReturnProcessed,
		Audience: notifications.AudienceCustomer(request.CustomerID),
		Payload: map[string]any{
			"return_request_id": request.ID.String(),
			"order_id":          request.OrderID.String(),
			"status":            string(target),
			"refund_cents":      request.RefundAmountCents,
		},
	})
	return nil
}

func (s *service) ListReturnRequests(ctx context.Context, actor workflow.Actor, params ReturnListParams) ([]models.ReturnRequest, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins list return requests")
	}
	limit, offset := normalizePage(ListParams{Limit: params.Limit, Offset: params.Offset})
	rows, err := s.repo.ListReturnRequests(ctx, params.Status, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.findOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.RoleCustomer && order.CustomerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return order, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	limit, offset := normalizePage(params)
	rows, err := s.repo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) ListSubOrdersByFulfiller(ctx context.Context, fulfillerID uuid.UUID, params ListParams) ([]models.SubOrder, error) {
	if fulfillerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fulfiller id required")
	}
	limit, offset := normalizePage(params)
	rows, err := s.repo.ListSubOrdersByFulfiller(ctx, fulfillerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sub-orders")
	}
	return rows, nil
}

// buildSubOrders prices each requested line against live inventory and groups
// the lines into one sub-order per fulfiller, preserving request order.
func (s *service) buildSubOrders(ctx context.Context, orderID uuid.UUID, inputs []ItemInput, now time.Time) ([]models.SubOrder, []models.OrderItem, int64, error) {
	var subOrders []models.SubOrder
	subIndex := map[uuid.UUID]int{}
	var items []models.OrderItem
	var subtotal int64

	for _, in := range inputs {
		stock, err := s.inv.Find(ctx, in.FulfillerID, in.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, 0, pkgerrors.New(pkgerrors.CodeOutOfStock,
					fmt.Sprintf("product %s is not available", in.ProductName)).
					WithDetails(map[string]any{"product_id": in.ProductID.String()})
			}
			return nil, nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check inventory")
		}
		if stock.ExpiresAt != nil && !stock.ExpiresAt.After(now) {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeOutOfStock,
				fmt.Sprintf("product %s has expired stock", in.ProductName)).
				WithDetails(map[string]any{"product_id": in.ProductID.String()})
		}
		if in.Quantity > stock.Quantity {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeOutOfStock,
				fmt.Sprintf("insufficient stock for %s", in.ProductName)).
				WithDetails(map[string]any{
					"product_id": in.ProductID.String(),
					"requested":  in.Quantity,
					"available":  stock.Quantity,
				})
		}

		idx, ok := subIndex[in.FulfillerID]
		if !ok {
			idx = len(subOrders)
			subIndex[in.FulfillerID] = idx
			subOrders = append(subOrders, models.SubOrder{
				ID:            uuid.New(),
				OrderID:       orderID,
				FulfillerID:   in.FulfillerID,
				FulfillerKind: in.FulfillerKind,
				Status:        enums.OrderStatusPending,
			})
		}

		lineTotal := stock.UnitPriceCents * int64(in.Quantity)
		subtotal += lineTotal
		subOrders[idx].SubtotalCents += lineTotal

		items = append(items, models.OrderItem{
			ID:                   uuid.New(),
			OrderID:              orderID,
			SubOrderID:           subOrders[idx].ID,
			ProductID:            in.ProductID,
			ProductName:          in.ProductName,
			FulfillerID:          in.FulfillerID,
			Quantity:             in.Quantity,
			UnitPriceCents:       stock.UnitPriceCents,
			TotalCents:           lineTotal,
			PrescriptionRequired: in.PrescriptionRequired,
			ReturnStatus:         enums.ItemReturnStatusNotReturned,
		})
	}
	return subOrders, items, subtotal, nil
}

func (s *service) findOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return order, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, status enums.OrderStatus, actor workflow.Actor, notes *string) error {
	change := &models.OrderStatusChange{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		ActorName: actor.Name,
		Notes:     notes,
	}
	if err := repo.AppendHistory(ctx, change); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func (s *service) nextOrderNumber(ctx context.Context) (string, error) {
	seq, err := s.seq.NextSequence(ctx, orderSequence)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD%d%04d", s.now().Unix(), seq%10000), nil
}

func validateCreateOrderInput(input CreateOrderInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.CreditsToUseCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credits to use cannot be negative")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.FulfillerID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product and fulfiller ids required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if !item.FulfillerKind.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fulfiller kind %q", item.FulfillerKind))
		}
	}
	return nil
}

func normalizePage(params ListParams) (int, int) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/api/middleware"
	"github.com/Icecubesaad/cura-backend/api/responses"
	"github.com/Icecubesaad/cura-backend/api/validators"
	ordersvc "github.com/Icecubesaad/cura-backend/internal/orders"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
	"github.com/Icecubesaad/cura-backend/pkg/types"
)

// OrderCreate places a new order, splitting items into per-fulfiller sub-orders.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(record))
	}
}

// OrderConfirmPayment marks a pending order as paid and settles it.
func OrderConfirmPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.ConfirmPayment(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(record))
	}
}

// SubOrderAdvance moves one fulfiller's sub-order to the requested status.
func SubOrderAdvance(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subOrderID, err := validators.ParseUUIDParam(chi.URLParam(r, "subOrderID"), "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.AdvanceSubOrderStatus(r.Context(), subOrderID, target, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(target)})
	}
}

// OrderCancel cancels an order that has not started fulfillment.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.Cancel(r.Context(), orderID, actor, payload.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.OrderStatusCancelled)})
	}
}

// OrderReturnRequest opens a return for items of a delivered order.
func OrderReturnRequest(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]ordersvc.ReturnItemInput, len(payload.Items))
		for i, item := range payload.Items {
			items[i] = ordersvc.ReturnItemInput{
				OrderItemID: item.OrderItemID,
				Quantity:    item.Quantity,
				Reason:      item.Reason,
			}
		}

		input := ordersvc.ReturnInput{
			OrderID:    orderID,
			CustomerID: middleware.UserIDFromContext(r.Context()),
			Reason:     payload.Reason,
			Items:      items,
		}

		record, err := svc.RequestReturn(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newReturnRequestResponse(record))
	}
}

// ReturnProcess records the admin decision on a pending return request.
func ReturnProcess(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseUUIDParam(chi.URLParam(r, "requestID"), "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload processReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.ProcessReturnInput{
			ReturnRequestID: requestID,
			Actor:           middleware.ActorFromContext(r.Context()),
			Approve:         payload.Approve,
			AdminNotes:      payload.AdminNotes,
		}

		if err := svc.ProcessReturn(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision := enums.ReturnRequestStatusRejected
		if payload.Approve {
			decision = enums.ReturnRequestStatusApproved
		}
		responses.WriteSuccess(w, map[string]string{"status": string(decision)})
	}
}

// ReturnsList lists return requests for admin review, newest first. The
// optional status query narrows the listing to one state.
func ReturnsList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listParams, err := orderListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := ordersvc.ReturnListParams{Limit: listParams.Limit, Offset: listParams.Offset}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseReturnRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = status
		}

		records, err := svc.ListReturnRequests(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]returnRequestResponse, 0, len(records))
		for i := range records {
			out = append(out, newReturnRequestResponse(&records[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderGet returns one order with its sub-orders, items and history.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), orderID, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(record))
	}
}

// OrdersMine lists the calling customer's orders, newest first.
func OrdersMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := orderListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.UserIDFromContext(r.Context())
		records, err := svc.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(records))
		for i := range records {
			out = append(out, newOrderResponse(&records[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// FulfillerSubOrders lists sub-orders assigned to the calling fulfiller.
func FulfillerSubOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := orderListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fulfillerID := middleware.UserIDFromContext(r.Context())
		records, err := svc.ListSubOrdersByFulfiller(r.Context(), fulfillerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]subOrderResponse, 0, len(records))
		for _, sub := range records {
			out = append(out, newSubOrderResponse(sub))
		}
		responses.WriteSuccess(w, out)
	}
}

func orderListParams(r *http.Request) (ordersvc.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	return ordersvc.ListParams{Limit: limit, Offset: offset}, nil
}

type createOrderRequest struct {
	PaymentMethod     string             `json:"payment_method" validate:"required"`
	DeliveryAddress   *types.Address     `json:"delivery_address" validate:"required"`
	PrescriptionID    *uuid.UUID         `json:"prescription_id,omitempty"`
	CreditsToUseCents int64              `json:"credits_to_use_cents" validate:"min=0"`
	Items             []orderItemPayload `json:"items" validate:"required,min=1,dive"`
}

type orderItemPayload struct {
	ProductID            uuid.UUID `json:"product_id" validate:"required"`
	ProductName          string    `json:"product_name" validate:"required"`
	FulfillerID          uuid.UUID `json:"fulfiller_id" validate:"required"`
	FulfillerKind        string    `json:"fulfiller_kind" validate:"required"`
	Quantity             int       `json:"quantity" validate:"required,min=1"`
	PrescriptionRequired bool      `json:"prescription_required"`
}

func (p createOrderRequest) toInput(r *http.Request) (ordersvc.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	items := make([]ordersvc.ItemInput, len(p.Items))
	for i, item := range p.Items {
		kind, err := enums.ParseFulfillerKind(item.FulfillerKind)
		if err != nil {
			return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfiller kind")
		}
		items[i] = ordersvc.ItemInput{
			ProductID:            item.ProductID,
			ProductName:          item.ProductName,
			FulfillerID:          item.FulfillerID,
			FulfillerKind:        kind,
			Quantity:             item.Quantity,
			PrescriptionRequired: item.PrescriptionRequired,
		}
	}

	actor := middleware.ActorFromContext(r.Context())
	return ordersvc.CreateOrderInput{
		CustomerID:        actor.ID,
		CustomerName:      actor.Name,
		CustomerPhone:     middleware.UserPhoneFromContext(r.Context()),
		PaymentMethod:     method,
		DeliveryAddress:   p.DeliveryAddress,
		PrescriptionID:    p.PrescriptionID,
		CreditsToUseCents: p.CreditsToUseCents,
		Items:             items,
	}, nil
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type returnRequestPayload struct {
	Reason string              `json:"reason" validate:"required"`
	Items  []returnItemPayload `json:"items" validate:"required,min=1,dive"`
}

type returnItemPayload struct {
	OrderItemID uuid.UUID `json:"order_item_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
	Reason      *string   `json:"reason,omitempty"`
}

type processReturnRequest struct {
	Approve    bool    `json:"approve"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	CustomerID       uuid.UUID               `json:"customer_id"`
	CustomerName     string                  `json:"customer_name"`
	Status           string                  `json:"status"`
	SubtotalCents    int64                   `json:"subtotal_cents"`
	DeliveryFeeCents int64                   `json:"delivery_fee_cents"`
	TaxCents         int64                   `json:"tax_cents"`
	TotalCents       int64                   `json:"total_cents"`
	CreditsUsedCents int64                   `json:"credits_used_cents"`
	FinalAmountCents int64                   `json:"final_amount_cents"`
	PaymentMethod    string                  `json:"payment_method"`
	PaymentStatus    string                  `json:"payment_status"`
	DeliveryAddress  *types.Address          `json:"delivery_address,omitempty"`
	PrescriptionID   *uuid.UUID              `json:"prescription_id,omitempty"`
	CancelReason     *string                 `json:"cancel_reason,omitempty"`
	DeliveredAt      *time.Time              `json:"delivered_at,omitempty"`
	SubOrders        []subOrderResponse      `json:"sub_orders"`
	Items            []orderItemResponse     `json:"items"`
	StatusHistory    []statusChangeResponse  `json:"status_history,omitempty"`
	ReturnRequests   []returnRequestResponse `json:"return_requests,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type subOrderResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	FulfillerID   uuid.UUID  `json:"fulfiller_id"`
	FulfillerKind string     `json:"fulfiller_kind"`
	Status        string     `json:"status"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type orderItemResponse struct {
	ID                   uuid.UUID  `json:"id"`
	SubOrderID           uuid.UUID  `json:"sub_order_id"`
	ProductID            uuid.UUID  `json:"product_id"`
	ProductName          string     `json:"product_name"`
	FulfillerID          uuid.UUID  `json:"fulfiller_id"`
	Quantity             int        `json:"quantity"`
	UnitPriceCents       int64      `json:"unit_price_cents"`
	TotalCents           int64      `json:"total_cents"`
	PrescriptionRequired bool       `json:"prescription_required"`
	ReturnStatus         string     `json:"return_status"`
	ReturnReason         *string    `json:"return_reason,omitempty"`
	ReturnRequestedAt    *time.Time `json:"return_requested_at,omitempty"`
}

type returnRequestResponse struct {
	ID                uuid.UUID            `json:"id"`
	OrderID           uuid.UUID            `json:"order_id"`
	Status            string               `json:"status"`
	Reason            string               `json:"reason"`
	RefundAmountCents int64                `json:"refund_amount_cents"`
	AdminNotes        *string              `json:"admin_notes,omitempty"`
	ProcessedBy       *uuid.UUID           `json:"processed_by,omitempty"`
	ProcessedAt       *time.Time           `json:"processed_at,omitempty"`
	Items             []returnItemResponse `json:"items"`
	CreatedAt         time.Time            `json:"created_at"`
}

type returnItemResponse struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Quantity    int       `json:"quantity"`
	Reason      *string   `json:"reason,omitempty"`
}

func newOrderResponse(record *models.Order) orderResponse {
	subOrders := make([]subOrderResponse, 0, len(record.SubOrders))
	for _, sub := range record.SubOrders {
		subOrders = append(subOrders, newSubOrderResponse(sub))
	}

	items := make([]orderItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, orderItemResponse{
			ID:                   item.ID,
			SubOrderID:           item.SubOrderID,
			ProductID:            item.ProductID,
			ProductName:          item.ProductName,
			FulfillerID:          item.FulfillerID,
			Quantity:             item.Quantity,
			UnitPriceCents:       item.UnitPriceCents,
			TotalCents:           item.TotalCents,
			PrescriptionRequired: item.PrescriptionRequired,
			ReturnStatus:         string(item.ReturnStatus),
			ReturnReason:         item.ReturnReason,
			ReturnRequestedAt:    item.ReturnRequestedAt,
		})
	}

	history := make([]statusChangeResponse, 0, len(record.StatusHistory))
	for _, change := range record.StatusHistory {
		history = append(history, statusChangeResponse{
			Status:    string(change.Status),
			ActorID:   change.ActorID,
			ActorRole: string(change.ActorRole),
			ActorName: change.ActorName,
			Notes:     change.Notes,
			CreatedAt: change.CreatedAt,
		})
	}

	returnRequests := make([]returnRequestResponse, 0, len(record.ReturnRequests))
	for i := range record.ReturnRequests {
		returnRequests = append(returnRequests, newReturnRequestResponse(&record.ReturnRequests[i]))
	}

	return orderResponse{
		ID:               record.ID,
		OrderNumber:      record.OrderNumber,
		CustomerID:       record.CustomerID,
		CustomerName:     record.CustomerName,
		Status:           string(record.Status),
		SubtotalCents:    record.SubtotalCents,
		DeliveryFeeCents: record.DeliveryFeeCents,
		TaxCents:         record.TaxCents,
		TotalCents:       record.TotalCents,
		CreditsUsedCents: record.CreditsUsedCents,
		FinalAmountCents: record.FinalAmountCents,
		PaymentMethod:    string(record.PaymentMethod),
		PaymentStatus:    string(record.PaymentStatus),
		DeliveryAddress:  record.DeliveryAddress,
		PrescriptionID:   record.PrescriptionID,
		CancelReason:     record.CancelReason,
		DeliveredAt:      record.DeliveredAt,
		SubOrders:        subOrders,
		Items:            items,
		StatusHistory:    history,
		ReturnRequests:   returnRequests,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func newSubOrderResponse(sub models.SubOrder) subOrderResponse {
	return subOrderResponse{
		ID:            sub.ID,
		OrderID:       sub.OrderID,
		FulfillerID:   sub.FulfillerID,
		FulfillerKind: string(sub.FulfillerKind),
		Status:        string(sub.Status),
		SubtotalCents: sub.SubtotalCents,
		DeliveredAt:   sub.DeliveredAt,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
}

func newReturnRequestResponse(record *models.ReturnRequest) returnRequestResponse {
	items := make([]returnItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, returnItemResponse{
			OrderItemID: item.OrderItemID,
			Quantity:    item.Quantity,
			Reason:      item.Reason,
		})
	}
	return returnRequestResponse{
		ID:                record.ID,
		OrderID:           record.OrderID,
		Status:            string(record.Status),
		Reason:            record.Reason,
		RefundAmountCents: record.RefundAmountCents,
		AdminNotes:        record.AdminNotes,
		ProcessedBy:       record.ProcessedBy,
		ProcessedAt:       record.ProcessedAt,
		Items:             items,
		CreatedAt:         record.CreatedAt,
	}
}

package orders

import (
	"github.com/shopspring/decimal"

	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Totals is the amount breakdown charged for an order. All values are cents.
type Totals struct {
	SubtotalCents    int64
	DeliveryFeeCents int64
	TaxCents         int64
	TotalCents       int64
}

// computeTotals prices an order from its item subtotal. The flat delivery fee
// is waived once the subtotal reaches the free-delivery threshold; tax applies
// to the subtotal only.
func computeTotals(subtotalCents int64, cfg config.WorkflowConfig) Totals {
	fee := cfg.DeliveryFeeCents
	if subtotalCents >= cfg.FreeDeliveryThresholdCents {
		fee = 0
	}
	tax := decimal.NewFromInt(subtotalCents).Mul(cfg.TaxRate).Round(0).IntPart()
	return Totals{
		SubtotalCents:    subtotalCents,
		DeliveryFeeCents: fee,
		TaxCents:         tax,
		TotalCents:       subtotalCents + fee + tax,
	}
}

// applyCredits splits the total into the credit-covered part and the remainder
// the customer still owes. Credits never push the final amount below zero.
func applyCredits(totalCents, creditsCents int64) (used, final int64) {
	if creditsCents <= 0 {
		return 0, totalCents
	}
	if creditsCents >= totalCents {
		return totalCents, 0
	}
	return creditsCents, totalCents - creditsCents
}

// earnedCredits computes the loyalty credit granted on a paid order, floored
// to whole cents.
func earnedCredits(totalCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(totalCents).Mul(rate).Floor().IntPart()
}

// deriveOrderStatus computes the parent order status from its sub-orders:
// delivered once every sub-order is delivered, out-for-delivery once any has
// been dispatched, ready once all are at least ready. Anything earlier leaves
// the parent untouched.
func deriveOrderStatus(current enums.OrderStatus, subs []models.SubOrder) enums.OrderStatus {
	if len(subs) == 0 {
		return current
	}

	allDelivered := true
	anyDispatched := false
	allReady := true
	for _, sub := range subs {
		if sub.Status != enums.OrderStatusDelivered {
			allDelivered = false
		}
		if sub.Status.AtLeastDispatched() {
			anyDispatched = true
		}
		switch sub.Status {
		case enums.OrderStatusReady, enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered:
		default:
			allReady = false
		}
	}

	switch {
	case allDelivered:
		return enums.OrderStatusDelivered
	case anyDispatched:
		return enums.OrderStatusOutForDelivery
	case allReady:
		return enums.OrderStatusReady
	default:
		return current
	}
}

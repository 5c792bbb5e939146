package orders

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

func TestComputeTotals(t *testing.T) {
	cfg := config.WorkflowConfig{
		DeliveryFeeCents:           2000,
		FreeDeliveryThresholdCents: 50000,
		TaxRate:                    decimal.RequireFromString("0.14"),
	}

	tests := []struct {
		name     string
		subtotal int64
		fee      int64
		tax      int64
		total    int64
	}{
		{"below threshold", 35000, 2000, 4900, 41900},
		{"at threshold", 50000, 0, 7000, 57000},
		{"above threshold", 60000, 0, 8400, 68400},
		{"rounds tax", 10001, 2000, 1400, 13401},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := computeTotals(tc.subtotal, cfg)
			if got.DeliveryFeeCents != tc.fee || got.TaxCents != tc.tax || got.TotalCents != tc.total {
				t.Fatalf("computeTotals(%d) = %+v", tc.subtotal, got)
			}
		})
	}
}

func TestApplyCredits(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		credits int64
		used    int64
		final   int64
	}{
		{"no credits", 10000, 0, 0, 10000},
		{"partial", 10000, 4000, 4000, 6000},
		{"exact", 10000, 10000, 10000, 0},
		{"overshoot capped", 10000, 25000, 10000, 0},
		{"negative ignored", 10000, -500, 0, 10000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			used, final := applyCredits(tc.total, tc.credits)
			if used != tc.used || final != tc.final {
				t.Fatalf("applyCredits(%d, %d) = (%d, %d)", tc.total, tc.credits, used, final)
			}
		})
	}
}

func TestEarnedCreditsFloors(t *testing.T) {
	rate := decimal.RequireFromString("0.05")
	if got := earnedCredits(41900, rate); got != 2095 {
		t.Fatalf("earnedCredits(41900) = %d", got)
	}
	// 0.05 * 999 = 49.95, floored
	if got := earnedCredits(999, rate); got != 49 {
		t.Fatalf("earnedCredits(999) = %d", got)
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	subs := func(statuses ...enums.OrderStatus) []models.SubOrder {
		out := make([]models.SubOrder, 0, len(statuses))
		for _, status := range statuses {
			out = append(out, models.SubOrder{Status: status})
		}
		return out
	}

	tests := []struct {
		name    string
		current enums.OrderStatus
		subs    []models.SubOrder
		want    enums.OrderStatus
	}{
		{"all delivered", enums.OrderStatusOutForDelivery, subs(enums.OrderStatusDelivered, enums.OrderStatusDelivered), enums.OrderStatusDelivered},
		{"one dispatched", enums.OrderStatusPreparing, subs(enums.OrderStatusDelivered, enums.OrderStatusPreparing), enums.OrderStatusOutForDelivery},
		{"all ready", enums.OrderStatusPreparing, subs(enums.OrderStatusReady, enums.OrderStatusReady), enums.OrderStatusReady},
		{"mixed early stays", enums.OrderStatusConfirmed, subs(enums.OrderStatusConfirmed, enums.OrderStatusPreparing), enums.OrderStatusConfirmed},
		{"no sub-orders stays", enums.OrderStatusPending, nil, enums.OrderStatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveOrderStatus(tc.current, tc.subs); got != tc.want {
				t.Fatalf("deriveOrderStatus(%s) = %s, want %s", tc.current, got, tc.want)
			}
		})
	}
}

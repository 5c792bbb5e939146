package workflow

import (
	"testing"
	"time"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

func TestPrescriptionTransitions(t *testing.T) {
	cases := []struct {
		name string
		from enums.PrescriptionStatus
		to   enums.PrescriptionStatus
		role enums.Role
		want bool
	}{
		{"reader claims submitted", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusReviewing, enums.RolePrescriptionReader, true},
		{"pharmacy claims submitted", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusReviewing, enums.RolePharmacy, true},
		{"customer cannot claim", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusReviewing, enums.RoleCustomer, false},
		{"reader approves reviewing", enums.PrescriptionStatusReviewing, enums.PrescriptionStatusApproved, enums.RolePrescriptionReader, true},
		{"reader rejects reviewing", enums.PrescriptionStatusReviewing, enums.PrescriptionStatusRejected, enums.RolePrescriptionReader, true},
		{"reader suspends reviewing", enums.PrescriptionStatusReviewing, enums.PrescriptionStatusSuspended, enums.RolePrescriptionReader, true},
		{"customer cancels submitted", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusCancelled, enums.RoleCustomer, true},
		{"customer cancels approved", enums.PrescriptionStatusApproved, enums.PrescriptionStatusCancelled, enums.RoleCustomer, true},
		{"admin force cancels submitted", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusCancelled, enums.RoleAdmin, true},
		{"reader cannot cancel", enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusCancelled, enums.RolePrescriptionReader, false},
		{"customer resubmits rejected", enums.PrescriptionStatusRejected, enums.PrescriptionStatusSubmitted, enums.RoleCustomer, true},
		{"admin resumes suspended", enums.PrescriptionStatusSuspended, enums.PrescriptionStatusReviewing, enums.RoleAdmin, true},
		{"suspended may be approved", enums.PrescriptionStatusSuspended, enums.PrescriptionStatusApproved, enums.RolePharmacy, true},
		{"cancelled is terminal", enums.PrescriptionStatusCancelled, enums.PrescriptionStatusSubmitted, enums.RoleAdmin, false},
		{"approved cannot reopen", enums.PrescriptionStatusApproved, enums.PrescriptionStatusReviewing, enums.RolePrescriptionReader, false},
		{"no skipping rejected to approved", enums.PrescriptionStatusRejected, enums.PrescriptionStatusApproved, enums.RolePrescriptionReader, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransitionPrescription(tc.from, tc.to, tc.role); got != tc.want {
				t.Fatalf("CanTransitionPrescription(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		name string
		from enums.OrderStatus
		to   enums.OrderStatus
		role enums.Role
		want bool
	}{
		{"pharmacy confirms pending", enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RolePharmacy, true},
		{"vendor confirms pending", enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleVendor, true},
		{"customer cannot confirm", enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleCustomer, false},
		{"customer cancels pending", enums.OrderStatusPending, enums.OrderStatusCancelled, enums.RoleCustomer, true},
		{"customer cancels confirmed", enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.RoleCustomer, true},
		{"customer cannot cancel preparing", enums.OrderStatusPreparing, enums.OrderStatusCancelled, enums.RoleCustomer, false},
		{"pharmacy cancels preparing", enums.OrderStatusPreparing, enums.OrderStatusCancelled, enums.RolePharmacy, true},
		{"pharmacy advances to preparing", enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.RolePharmacy, true},
		{"pharmacy marks ready", enums.OrderStatusPreparing, enums.OrderStatusReady, enums.RolePharmacy, true},
		{"ready cannot be cancelled", enums.OrderStatusReady, enums.OrderStatusCancelled, enums.RolePharmacy, false},
		{"ready dispatches", enums.OrderStatusReady, enums.OrderStatusOutForDelivery, enums.RoleVendor, true},
		{"dispatched delivers", enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered, enums.RolePharmacy, true},
		{"delivered refunds via admin", enums.OrderStatusDelivered, enums.OrderStatusRefunded, enums.RoleAdmin, true},
		{"cancelled is terminal", enums.OrderStatusCancelled, enums.OrderStatusPending, enums.RoleAdmin, false},
		{"refunded is terminal", enums.OrderStatusRefunded, enums.OrderStatusDelivered, enums.RoleAdmin, false},
		{"no skipping pending to delivered", enums.OrderStatusPending, enums.OrderStatusDelivered, enums.RoleAdmin, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransitionOrder(tc.from, tc.to, tc.role); got != tc.want {
				t.Fatalf("CanTransitionOrder(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestCanTransitionIsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		if !CanTransition(KindPrescription, "submitted", "reviewing", enums.RolePrescriptionReader) {
			t.Fatal("expected stable admit result")
		}
		if CanTransition(KindOrder, "delivered", "pending", enums.RoleAdmin) {
			t.Fatal("expected stable deny result")
		}
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	nexts := ValidTransitionsFrom(KindPrescription, "submitted")
	want := map[string]bool{"reviewing": true, "approved": true, "suspended": true, "cancelled": true}
	if len(nexts) != len(want) {
		t.Fatalf("expected %d targets, got %v", len(want), nexts)
	}
	for _, n := range nexts {
		if !want[n] {
			t.Fatalf("unexpected target %q", n)
		}
	}

	if got := ValidTransitionsFrom(KindOrder, "refunded"); len(got) != 0 {
		t.Fatalf("expected terminal status to have no targets, got %v", got)
	}
}

func TestEstimateCompletion(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := BaseDurations{Reviewing: 2 * time.Hour, Suspended: 4 * time.Hour}

	cases := []struct {
		name    string
		status  enums.PrescriptionStatus
		urgency enums.Urgency
		want    time.Time
	}{
		{"urgent halves reviewing", enums.PrescriptionStatusReviewing, enums.UrgencyUrgent, now.Add(time.Hour)},
		{"normal keeps reviewing", enums.PrescriptionStatusReviewing, enums.UrgencyNormal, now.Add(2 * time.Hour)},
		{"routine stretches reviewing", enums.PrescriptionStatusReviewing, enums.UrgencyRoutine, now.Add(3 * time.Hour)},
		{"suspended uses its own base", enums.PrescriptionStatusSuspended, enums.UrgencyNormal, now.Add(4 * time.Hour)},
		{"approved completes immediately", enums.PrescriptionStatusApproved, enums.UrgencyUrgent, now},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateCompletion(now, tc.status, tc.urgency, base)
			if !got.Equal(tc.want) {
				t.Fatalf("EstimateCompletion = %v, want %v", got, tc.want)
			}
		})
	}
}

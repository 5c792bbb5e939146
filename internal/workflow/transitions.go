package workflow

import (
	"time"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// EntityKind selects which transition graph applies.
type EntityKind string

const (
	KindPrescription EntityKind = "prescription"
	KindOrder        EntityKind = "order"
)

// Transition defines a valid status change and who can perform it.
type Transition struct {
	From string
	To   string
	Role enums.Role
}

// prescriptionTransitions is the authoritative prescription state machine.
// Reviewer roles drive the review edges; customers may cancel what they own
// and resubmit after a rejection.
var prescriptionTransitions = func() []Transition {
	var out []Transition
	reviewers := []enums.Role{enums.RolePrescriptionReader, enums.RolePharmacy, enums.RoleAdmin}

	reviewEdges := []struct{ from, to enums.PrescriptionStatus }{
		{enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusReviewing},
		{enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusApproved},
		{enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusSuspended},
		{enums.PrescriptionStatusReviewing, enums.PrescriptionStatusApproved},
		{enums.PrescriptionStatusReviewing, enums.PrescriptionStatusRejected},
		{enums.PrescriptionStatusReviewing, enums.PrescriptionStatusSuspended},
		{enums.PrescriptionStatusSuspended, enums.PrescriptionStatusReviewing},
		{enums.PrescriptionStatusSuspended, enums.PrescriptionStatusApproved},
		{enums.PrescriptionStatusSuspended, enums.PrescriptionStatusRejected},
	}
	for _, edge := range reviewEdges {
		for _, role := range reviewers {
			out = append(out, Transition{From: string(edge.from), To: string(edge.to), Role: role})
		}
	}

	cancelEdges := []enums.PrescriptionStatus{
		enums.PrescriptionStatusSubmitted,
		enums.PrescriptionStatusApproved,
	}
	for _, from := range cancelEdges {
		out = append(out,
			Transition{From: string(from), To: string(enums.PrescriptionStatusCancelled), Role: enums.RoleCustomer},
			Transition{From: string(from), To: string(enums.PrescriptionStatusCancelled), Role: enums.RoleAdmin},
		)
	}

	// Customer resubmission after a rejection.
	out = append(out,
		Transition{From: string(enums.PrescriptionStatusRejected), To: string(enums.PrescriptionStatusSubmitted), Role: enums.RoleCustomer},
		Transition{From: string(enums.PrescriptionStatusRejected), To: string(enums.PrescriptionStatusSubmitted), Role: enums.RoleAdmin},
	)

	return out
}()

// orderTransitions is the authoritative order state machine. Sub-orders are
// advanced by their fulfiller or an admin; customers may only cancel before
// fulfillment starts.
var orderTransitions = func() []Transition {
	var out []Transition
	advancers := []enums.Role{enums.RolePharmacy, enums.RoleVendor, enums.RoleAdmin}

	advanceEdges := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed},
		{enums.OrderStatusPending, enums.OrderStatusCancelled},
		{enums.OrderStatusConfirmed, enums.OrderStatusPreparing},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
		{enums.OrderStatusPreparing, enums.OrderStatusReady},
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled},
		{enums.OrderStatusReady, enums.OrderStatusOutForDelivery},
		{enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered},
		{enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	}
	for _, edge := range advanceEdges {
		for _, role := range advancers {
			out = append(out, Transition{From: string(edge.from), To: string(edge.to), Role: role})
		}
	}

	for _, from := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed} {
		out = append(out, Transition{From: string(from), To: string(enums.OrderStatusCancelled), Role: enums.RoleCustomer})
	}

	return out
}()

type transitionKey struct {
	Kind EntityKind
	From string
	To   string
	Role enums.Role
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range prescriptionTransitions {
		m[transitionKey{KindPrescription, t.From, t.To, t.Role}] = true
	}
	for _, t := range orderTransitions {
		m[transitionKey{KindOrder, t.From, t.To, t.Role}] = true
	}
	return m
}()

// CanTransition reports whether the acting role may move an entity of the
// given kind from one status to another. Pure lookup, no side effects.
func CanTransition(kind EntityKind, from, to string, role enums.Role) bool {
	return transitionMap[transitionKey{Kind: kind, From: from, To: to, Role: role}]
}

// CanTransitionPrescription is the typed prescription-graph lookup.
func CanTransitionPrescription(from, to enums.PrescriptionStatus, role enums.Role) bool {
	return CanTransition(KindPrescription, string(from), string(to), role)
}

// CanTransitionOrder is the typed order-graph lookup.
func CanTransitionOrder(from, to enums.OrderStatus, role enums.Role) bool {
	return CanTransition(KindOrder, string(from), string(to), role)
}

// ValidTransitionsFrom returns the distinct reachable target statuses from a
// given status, regardless of role.
func ValidTransitionsFrom(kind EntityKind, from string) []string {
	var source []Transition
	switch kind {
	case KindPrescription:
		source = prescriptionTransitions
	case KindOrder:
		source = orderTransitions
	default:
		return nil
	}
	var nexts []string
	seen := map[string]bool{}
	for _, t := range source {
		if t.From == from && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// BaseDurations carries the per-status review durations used to estimate when
// a prescription finishes processing.
type BaseDurations struct {
	Reviewing time.Duration
	Suspended time.Duration
}

// EstimateCompletion projects when a prescription in the given status should
// complete, scaling the status base duration by the urgency multiplier.
// Statuses with no base duration complete immediately.
func EstimateCompletion(now time.Time, status enums.PrescriptionStatus, urgency enums.Urgency, base BaseDurations) time.Time {
	var d time.Duration
	switch status {
	case enums.PrescriptionStatusReviewing:
		d = base.Reviewing
	case enums.PrescriptionStatusSuspended:
		d = base.Suspended
	default:
		return now
	}
	scaled := time.Duration(float64(d) * urgency.Multiplier())
	return now.Add(scaled)
}

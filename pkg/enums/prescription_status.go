package enums

import "fmt"

// PrescriptionStatus tracks the review lifecycle of a prescription.
type PrescriptionStatus string

const (
	PrescriptionStatusSubmitted PrescriptionStatus = "submitted"
	PrescriptionStatusReviewing PrescriptionStatus = "reviewing"
	PrescriptionStatusApproved  PrescriptionStatus = "approved"
	PrescriptionStatusRejected  PrescriptionStatus = "rejected"
	PrescriptionStatusCancelled PrescriptionStatus = "cancelled"
	PrescriptionStatusSuspended PrescriptionStatus = "suspended"
)

var validPrescriptionStatuses = []PrescriptionStatus{
	PrescriptionStatusSubmitted,
	PrescriptionStatusReviewing,
	PrescriptionStatusApproved,
	PrescriptionStatusRejected,
	PrescriptionStatusCancelled,
	PrescriptionStatusSuspended,
}

// String implements fmt.Stringer.
func (s PrescriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PrescriptionStatus.
func (s PrescriptionStatus) IsValid() bool {
	for _, candidate := range validPrescriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s PrescriptionStatus) IsTerminal() bool {
	return s == PrescriptionStatusCancelled
}

// ParsePrescriptionStatus converts raw input into a PrescriptionStatus.
func ParsePrescriptionStatus(value string) (PrescriptionStatus, error) {
	for _, candidate := range validPrescriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid prescription status %q", value)
}

package enums

import "fmt"

// ItemReturnStatus tracks the per-line-item return state.
type ItemReturnStatus string

const (
	ItemReturnStatusNotReturned     ItemReturnStatus = "not_returned"
	ItemReturnStatusReturnRequested ItemReturnStatus = "return_requested"
	ItemReturnStatusReturned        ItemReturnStatus = "returned"
)

var validItemReturnStatuses = []ItemReturnStatus{
	ItemReturnStatusNotReturned,
	ItemReturnStatusReturnRequested,
	ItemReturnStatusReturned,
}

// IsValid reports whether the value is a known ItemReturnStatus.
func (s ItemReturnStatus) IsValid() bool {
	for _, candidate := range validItemReturnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ReturnRequestStatus tracks the lifecycle of a return request.
type ReturnRequestStatus string

const (
	ReturnRequestStatusRequested  ReturnRequestStatus = "requested"
	ReturnRequestStatusApproved   ReturnRequestStatus = "approved"
	ReturnRequestStatusRejected   ReturnRequestStatus = "rejected"
	ReturnRequestStatusProcessing ReturnRequestStatus = "processing"
	ReturnRequestStatusCompleted  ReturnRequestStatus = "completed"
)

var validReturnRequestStatuses = []ReturnRequestStatus{
	ReturnRequestStatusRequested,
	ReturnRequestStatusApproved,
	ReturnRequestStatusRejected,
	ReturnRequestStatusProcessing,
	ReturnRequestStatusCompleted,
}

// IsValid reports whether the value is a known ReturnRequestStatus.
func (s ReturnRequestStatus) IsValid() bool {
	for _, candidate := range validReturnRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReturnRequestStatus converts raw input into a ReturnRequestStatus.
func ParseReturnRequestStatus(value string) (ReturnRequestStatus, error) {
	for _, candidate := range validReturnRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request status %q", value)
}

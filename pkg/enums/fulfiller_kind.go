package enums

import "fmt"

// FulfillerKind distinguishes the account type responsible for a sub-order.
type FulfillerKind string

const (
	FulfillerKindPharmacy FulfillerKind = "pharmacy"
	FulfillerKindVendor   FulfillerKind = "vendor"
)

var validFulfillerKinds = []FulfillerKind{
	FulfillerKindPharmacy,
	FulfillerKindVendor,
}

// IsValid reports whether the value is a known FulfillerKind.
func (k FulfillerKind) IsValid() bool {
	for _, candidate := range validFulfillerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseFulfillerKind converts raw input into a FulfillerKind.
func ParseFulfillerKind(value string) (FulfillerKind, error) {
	for _, candidate := range validFulfillerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfiller kind %q", value)
}

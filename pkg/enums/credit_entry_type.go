package enums

import "fmt"

// CreditEntryType classifies entries in a customer's credit ledger.
type CreditEntryType string

const (
	CreditEntryTypeEarned CreditEntryType = "earned"
	CreditEntryTypeUsed   CreditEntryType = "used"
	CreditEntryTypeRefund CreditEntryType = "refund"
	CreditEntryTypeBonus  CreditEntryType = "bonus"
)

var validCreditEntryTypes = []CreditEntryType{
	CreditEntryTypeEarned,
	CreditEntryTypeUsed,
	CreditEntryTypeRefund,
	CreditEntryTypeBonus,
}

// IsValid reports whether the value is a known CreditEntryType.
func (t CreditEntryType) IsValid() bool {
	for _, candidate := range validCreditEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCreditEntryType converts raw input into a CreditEntryType.
func ParseCreditEntryType(value string) (CreditEntryType, error) {
	for _, candidate := range validCreditEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit entry type %q", value)
}

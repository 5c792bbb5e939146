package enums

import "fmt"

// Role is the closed set of actor roles known to the workflow core.
type Role string

const (
	RoleCustomer           Role = "customer"
	RolePrescriptionReader Role = "prescription-reader"
	RolePharmacy           Role = "pharmacy"
	RoleVendor             Role = "vendor"
	RoleAdmin              Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RolePrescriptionReader,
	RolePharmacy,
	RoleVendor,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the role may review prescriptions.
func (r Role) IsReviewer() bool {
	return r == RolePrescriptionReader || r == RolePharmacy || r == RoleAdmin
}

// IsFulfiller reports whether the role supplies and ships sub-orders.
func (r Role) IsFulfiller() bool {
	return r == RolePharmacy || r == RoleVendor
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

package types

// Address is the delivery address snapshot stored on an order.
type Address struct {
	Street      string `json:"street"`
	Area        string `json:"area,omitempty"`
	City        string `json:"city"`
	Governorate string `json:"governorate"`
	Phone       string `json:"phone,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// IsZero reports whether no address fields are set.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.Governorate == ""
}

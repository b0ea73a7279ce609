package enums

// ReferenceType labels what a wallet transaction paid for.
type ReferenceType string

const (
	ReferenceTypeOrderPayment ReferenceType = "ORDER_PAYMENT"
	ReferenceTypeOrderRefund  ReferenceType = "ORDER_REFUND"
	ReferenceTypeTopUp        ReferenceType = "TOPUP"
)

// String implements fmt.Stringer.
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeOrderPayment, ReferenceTypeOrderRefund, ReferenceTypeTopUp:
		return true
	}
	return false
}

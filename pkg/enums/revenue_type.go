package enums

import "fmt"

// RevenueType classifies platform revenue events.
type RevenueType string

const (
	RevenueTypeCommission    RevenueType = "COMMISSION"
	RevenueTypeGatewayMarkup RevenueType = "GATEWAY_MARKUP"
	RevenueTypePromotion     RevenueType = "PROMOTION_REVENUE"
	RevenueTypeSubscription  RevenueType = "SUBSCRIPTION_FEE"
)

var validRevenueTypes = []RevenueType{
	RevenueTypeCommission,
	RevenueTypeGatewayMarkup,
	RevenueTypePromotion,
	RevenueTypeSubscription,
}

// String implements fmt.Stringer.
func (r RevenueType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RevenueType.
func (r RevenueType) IsValid() bool {
	for _, candidate := range validRevenueTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRevenueType converts raw input into a RevenueType.
func ParseRevenueType(value string) (RevenueType, error) {
	for _, candidate := range validRevenueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid revenue type %q", value)
}

package enums

import (
	"fmt"
	"strings"
)

// OrderType is the direction of an order as the ledger backend records it.
type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
	OrderTypeMisc OrderType = "MISC"
)

var validOrderTypes = []OrderType{
	OrderTypeBuy,
	OrderTypeSell,
	OrderTypeMisc,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// SupportsForm reports whether an order form can be opened for this type.
func (o OrderType) SupportsForm() bool {
	return o == OrderTypeBuy || o == OrderTypeSell
}

// ParseOrderType converts raw input into an OrderType. Matching is case-insensitive
// so route segments such as "sell" resolve.
func ParseOrderType(value string) (OrderType, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validOrderTypes {
		if string(candidate) == upper {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

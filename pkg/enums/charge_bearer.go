package enums

import "fmt"

// ChargeBearer identifies who absorbs an extra charge on an order.
type ChargeBearer string

const (
	// ChargeBearerCounterparty charges are billed to the entity and raise the grand total.
	ChargeBearerCounterparty ChargeBearer = "counterparty"
	// ChargeBearerBusiness charges come out of the organization's margin.
	ChargeBearerBusiness ChargeBearer = "business"
)

var validChargeBearers = []ChargeBearer{
	ChargeBearerCounterparty,
	ChargeBearerBusiness,
}

// String implements fmt.Stringer.
func (c ChargeBearer) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChargeBearer.
func (c ChargeBearer) IsValid() bool {
	for _, candidate := range validChargeBearers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChargeBearer converts raw input into a ChargeBearer.
func ParseChargeBearer(value string) (ChargeBearer, error) {
	for _, candidate := range validChargeBearers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge bearer %q", value)
}

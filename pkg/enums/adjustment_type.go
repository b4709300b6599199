package enums

import "fmt"

// AdjustmentType says whether a discount, tax or charge is entered as an
// absolute amount or as a percentage.
type AdjustmentType string

const (
	AdjustmentFixed      AdjustmentType = "fixed"
	AdjustmentPercentage AdjustmentType = "percentage"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentFixed,
	AdjustmentPercentage,
}

// String implements fmt.Stringer.
func (a AdjustmentType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdjustmentType.
func (a AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdjustmentType converts raw input into an AdjustmentType.
func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}

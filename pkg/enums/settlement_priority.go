package enums

import "fmt"

// SettlementPriority orders outstanding entity orders before a payment is spread over them.
type SettlementPriority string

const (
	// SettlementBuyFirst pays orders the business owes before sales, oldest first within each group.
	SettlementBuyFirst SettlementPriority = "buy_first"
	// SettlementOldestFirst ignores order type and pays strictly by creation date.
	SettlementOldestFirst SettlementPriority = "oldest_first"
)

var validSettlementPriorities = []SettlementPriority{
	SettlementBuyFirst,
	SettlementOldestFirst,
}

// IsValid reports whether the value is a known SettlementPriority.
func (s SettlementPriority) IsValid() bool {
	for _, candidate := range validSettlementPriorities {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementPriority converts raw input into a SettlementPriority.
func ParseSettlementPriority(value string) (SettlementPriority, error) {
	for _, candidate := range validSettlementPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement priority %q", value)
}

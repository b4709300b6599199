package enums

import "fmt"

// Resource is a class of ledger data gated by the permission table.
type Resource string

const (
	ResourceOrders      Resource = "orders"
	ResourceSettlements Resource = "settlements"
	ResourceProducts    Resource = "products"
	ResourceAccounts    Resource = "accounts"
	ResourceEntities    Resource = "entities"
)

var validResources = []Resource{
	ResourceOrders,
	ResourceSettlements,
	ResourceProducts,
	ResourceAccounts,
	ResourceEntities,
}

// IsValid reports whether the value is a known Resource.
func (r Resource) IsValid() bool {
	for _, candidate := range validResources {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResource converts raw input into a Resource.
func ParseResource(value string) (Resource, error) {
	for _, candidate := range validResources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource %q", value)
}

// Action is an operation on a Resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

var validActions = []Action{
	ActionRead,
	ActionCreate,
	ActionUpdate,
}

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	for _, candidate := range validActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action %q", value)
}

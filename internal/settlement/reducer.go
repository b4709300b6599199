// Package settlement spreads a payment over an entity's outstanding orders and
// posts the resulting allocations to the ledger backend.
package settlement

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// Allocation is the part of a payment assigned to one order.
type Allocation struct {
	OrderID   uuid.UUID       `json:"order_id"`
	OrderType enums.OrderType `json:"order_type"`
	Amount    float64         `json:"amount"`
	// Remaining is what the order still owed before this allocation.
	Remaining float64 `json:"remaining"`
}

// Plan is the outcome of reducing a payment over outstanding orders.
type Plan struct {
	Requested   float64      `json:"requested"`
	Allocations []Allocation `json:"allocations"`
	Allocated   float64      `json:"allocated"`
	// Unallocated is set when the orders run out before the payment does.
	Unallocated float64 `json:"unallocated"`
}

// Reduce allocates amount greedily over orders with something left to pay.
// BUY orders come first under SettlementBuyFirst; creation date breaks ties.
// The payment and every order balance are rounded to cents first and the
// budget is tracked in decimal, so each allocation is a whole cent amount.
func Reduce(amount float64, orders []refdata.EntityOrder, priority enums.SettlementPriority) Plan {
	plan := Plan{Allocations: []Allocation{}}
	budget := cents(amount)
	if !budget.IsPositive() {
		return plan
	}
	plan.Requested = budget.InexactFloat64()

	open := make([]refdata.EntityOrder, 0, len(orders))
	for _, o := range orders {
		if cents(o.Remaining()).IsPositive() {
			open = append(open, o)
		}
	}
	sortOrders(open, priority)

	allocated := decimal.Zero
	for _, o := range open {
		if !budget.IsPositive() {
			break
		}
		remaining := cents(o.Remaining())
		take := decimal.Min(budget, remaining)
		plan.Allocations = append(plan.Allocations, Allocation{
			OrderID:   o.ID,
			OrderType: o.Type,
			Amount:    take.InexactFloat64(),
			Remaining: remaining.InexactFloat64(),
		})
		allocated = allocated.Add(take)
		budget = budget.Sub(take)
	}
	plan.Allocated = allocated.InexactFloat64()
	plan.Unallocated = budget.InexactFloat64()
	return plan
}

// cents rounds x half away from zero to two places. Non-finite values are
// zero.
func cents(x float64) decimal.Decimal {
	return money.ToDecimal(x).Round(2)
}

func sortOrders(orders []refdata.EntityOrder, priority enums.SettlementPriority) {
	buyFirst := priority != enums.SettlementOldestFirst
	sort.SliceStable(orders, func(i, j int) bool {
		if buyFirst {
			bi := orders[i].Type == enums.OrderTypeBuy
			bj := orders[j].Type == enums.OrderTypeBuy
			if bi != bj {
				return bi
			}
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

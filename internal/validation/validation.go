// Package validation runs the client-side stock and balance pre-checks that
// gate order form transitions. Failures are returned as data, never as errors.
package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// Issue ties one failure to the line or payment index that caused it.
type Issue struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type Result struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
	Issues  []Issue  `json:"issues,omitempty"`
}

func (r *Result) add(index int, msg string) {
	r.Issues = append(r.Issues, Issue{Index: index, Message: msg})
	r.Errors = append(r.Errors, msg)
}

func (r Result) finish() Result {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	r.IsValid = len(r.Errors) == 0
	return r
}

type VariantLookup interface {
	Variant(id uuid.UUID) (refdata.Variant, refdata.Product, bool)
}

type AccountLookup interface {
	Account(id uuid.UUID) (refdata.Account, bool)
}

type LineQuantity struct {
	VariantID uuid.UUID
	Quantity  int
}

type PaymentAmount struct {
	AccountID uuid.UUID
	Amount    float64
}

// Stock fails a SELL line whose quantity exceeds the variant's available stock.
// Lines are checked independently and unknown variants are skipped. Other
// order types always pass.
func Stock(orderType enums.OrderType, lines []LineQuantity, catalog VariantLookup) Result {
	var res Result
	if orderType != enums.OrderTypeSell || catalog == nil {
		return res.finish()
	}
	for i, line := range lines {
		variant, product, ok := catalog.Variant(line.VariantID)
		if !ok {
			continue
		}
		available := variant.AvailableStock()
		if line.Quantity > available {
			res.add(i, fmt.Sprintf("Insufficient stock for %s (%s): requested %d, available %d",
				product.Name, variant.Name, line.Quantity, available))
		}
	}
	return res.finish()
}

// Balance fails a BUY payment larger than its account's balance. Each payment
// is compared on its own and unknown accounts are skipped. Other order types
// always pass.
func Balance(orderType enums.OrderType, payments []PaymentAmount, accounts AccountLookup) Result {
	var res Result
	if orderType != enums.OrderTypeBuy || accounts == nil {
		return res.finish()
	}
	for i, p := range payments {
		account, ok := accounts.Account(p.AccountID)
		if !ok {
			continue
		}
		if p.Amount > account.Balance {
			res.add(i, fmt.Sprintf("Insufficient balance in %s: requested %s, available %s",
				account.Name, money.Format(p.Amount), money.Format(account.Balance)))
		}
	}
	return res.finish()
}

// Package pricing computes order totals from a cart. Every function here is
// pure; the order form calls Calculate after each mutation.
package pricing

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// Line is the priced part of a cart line item.
type Line struct {
	Quantity int     `json:"quantity"`
	Rate     float64 `json:"rate"`
}

// Adjustment is a discount or tax. Both representations are stored; Type says
// which one the user entered and Resync keeps the other consistent.
type Adjustment struct {
	Type       enums.AdjustmentType `json:"type"`
	Amount     float64              `json:"amount"`
	Percentage float64              `json:"percentage"`
}

// Charge is an extra fee on the order.
type Charge struct {
	ID                 uuid.UUID            `json:"id"`
	Name               string               `json:"name"`
	AmountOrPercentage float64              `json:"amount_or_percentage"`
	Kind               enums.AdjustmentType `json:"kind"`
	AbsorbedBy         enums.ChargeBearer   `json:"absorbed_by"`
}

// Input is everything Calculate reads.
type Input struct {
	Lines    []Line
	Discount Adjustment
	Tax      Adjustment
	Charges  []Charge
	Payments []float64
}

// Calculations are derived totals. They are never persisted.
type Calculations struct {
	SubTotal        float64 `json:"sub_total"`
	DiscountAmount  float64 `json:"discount_amount"`
	TaxAmount       float64 `json:"tax_amount"`
	ChargeAmount    float64 `json:"charge_amount"`
	VendorCharges   float64 `json:"vendor_charges"`
	GrandTotal      float64 `json:"grand_total"`
	TotalPaid       float64 `json:"total_paid"`
	RemainingAmount float64 `json:"remaining_amount"`
}

// SubTotal sums quantity*rate over lines; NaN rates contribute nothing.
func SubTotal(lines []Line) float64 {
	terms := make([]float64, 0, len(lines))
	for _, line := range lines {
		terms = append(terms, float64(line.Quantity)*line.Rate)
	}
	return money.SumSafe(terms...)
}

// AmountFor resolves the absolute amount of the adjustment against subTotal.
func (a Adjustment) AmountFor(subTotal float64) float64 {
	if a.Type == enums.AdjustmentPercentage {
		return money.Percent(subTotal, a.Percentage)
	}
	return a.Amount
}

// Resync recomputes the mirror the user is not editing from the one they are.
func (a Adjustment) Resync(subTotal float64) Adjustment {
	switch a.Type {
	case enums.AdjustmentPercentage:
		a.Amount = money.Percent(subTotal, a.Percentage)
	default:
		a.Type = enums.AdjustmentFixed
		a.Percentage = money.PercentOf(a.Amount, subTotal)
	}
	return a
}

// NewAdjustment builds an adjustment from the value the user typed.
func NewAdjustment(kind enums.AdjustmentType, value, subTotal float64) Adjustment {
	a := Adjustment{Type: kind}
	if kind == enums.AdjustmentPercentage {
		a.Percentage = value
	} else {
		a.Type = enums.AdjustmentFixed
		a.Amount = value
	}
	return a.Resync(subTotal)
}

// AmountFor resolves the charge against base.
func (c Charge) AmountFor(base float64) float64 {
	if c.Kind == enums.AdjustmentPercentage {
		return money.Percent(base, c.AmountOrPercentage)
	}
	return c.AmountOrPercentage
}

// PaidByBusiness reports whether the organization absorbs the charge.
func (c Charge) PaidByBusiness() bool {
	return c.AbsorbedBy == enums.ChargeBearerBusiness
}

// ChargeAmount totals counterparty charges. Percentages apply to the
// discounted base.
func ChargeAmount(charges []Charge, subTotal, discount float64) float64 {
	base := money.SumSafe(subTotal, -discount)
	terms := []float64{}
	for _, c := range charges {
		if c.PaidByBusiness() {
			continue
		}
		terms = append(terms, c.AmountFor(base))
	}
	return money.SumSafe(terms...)
}

// VendorCharges totals business-absorbed charges. Percentages apply to the
// raw subtotal, not the discounted base.
func VendorCharges(charges []Charge, subTotal float64) float64 {
	terms := []float64{}
	for _, c := range charges {
		if !c.PaidByBusiness() {
			continue
		}
		terms = append(terms, c.AmountFor(subTotal))
	}
	return money.SumSafe(terms...)
}

// Calculate derives every total for the input.
func Calculate(in Input) Calculations {
	sub := SubTotal(in.Lines)
	discount := in.Discount.AmountFor(sub)
	tax := in.Tax.AmountFor(sub)
	charges := ChargeAmount(in.Charges, sub, discount)

	grand := money.ClampNonNegative(money.SumSafe(sub, -discount, tax, charges))
	paid := money.SumSafe(in.Payments...)

	return Calculations{
		SubTotal:        sub,
		DiscountAmount:  money.SumSafe(discount),
		TaxAmount:       money.SumSafe(tax),
		ChargeAmount:    charges,
		VendorCharges:   VendorCharges(in.Charges, sub),
		GrandTotal:      grand,
		TotalPaid:       paid,
		RemainingAmount: money.ClampNonNegative(money.SumSafe(grand, -paid)),
	}
}

// Rounded returns a copy rounded to cents for display.
func (c Calculations) Rounded() Calculations {
	return Calculations{
		SubTotal:        money.Round2(c.SubTotal),
		DiscountAmount:  money.Round2(c.DiscountAmount),
		TaxAmount:       money.Round2(c.TaxAmount),
		ChargeAmount:    money.Round2(c.ChargeAmount),
		VendorCharges:   money.Round2(c.VendorCharges),
		GrandTotal:      money.Round2(c.GrandTotal),
		TotalPaid:       money.Round2(c.TotalPaid),
		RemainingAmount: money.Round2(c.RemainingAmount),
	}
}

package orderform

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// BuildOrderRequest converts the cart into the backend creation payload.
// Incomplete lines and business-absorbed charges are left out; the latter
// are booked by the vendor charge follow-up.
func BuildOrderRequest(cart Cart) backend.CreateOrderRequest {
	calc := cart.Calculations()
	req := backend.CreateOrderRequest{
		Type:        cart.OrderType.String(),
		EntityID:    cart.EntityID,
		Description: cart.Description,
		Products:    []backend.OrderProduct{},
		Payments:    []backend.OrderPayment{},
	}
	for _, line := range cart.Lines {
		if !line.Complete() {
			continue
		}
		req.Products = append(req.Products, backend.OrderProduct{
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Description: line.Description,
		})
	}
	for _, p := range cart.Payments {
		req.Payments = append(req.Payments, backend.OrderPayment{
			AccountID: p.AccountID,
			Amount:    money.Round2(p.Amount),
			Details:   p.Details,
		})
	}
	if calc.DiscountAmount > 0 {
		discount := money.Round2(calc.DiscountAmount)
		req.Discount = &discount
	}
	if calc.TaxAmount > 0 {
		tax := money.Round2(calc.TaxAmount)
		req.Tax = &tax
	}
	for _, c := range cart.Charges {
		if c.PaidByBusiness() {
			continue
		}
		req.Charges = append(req.Charges, backend.OrderCharge{
			Name:   c.Name,
			Amount: money.Round2(chargeBase(c, calc)),
		})
	}
	if cart.OrderDate != nil {
		req.OrderDate = cart.OrderDate.UTC().Format(time.RFC3339)
	}
	return req
}

// chargeBase matches the base ChargeAmount applies to counterparty charges.
func chargeBase(c pricing.Charge, calc pricing.Calculations) float64 {
	return c.AmountFor(money.SumSafe(calc.SubTotal, -calc.DiscountAmount))
}

// VendorChargeRequest is the follow-up movement that books business-absorbed
// charges against the vendor charge account.
func VendorChargeRequest(cart Cart, orderID uuid.UUID) backend.AccountTransactionRequest {
	calc := cart.Calculations()
	description := "Vendor charges"
	if cart.Description != "" {
		description = "Vendor charges: " + cart.Description
	}
	return backend.AccountTransactionRequest{
		Amount:      money.Round2(calc.VendorCharges),
		Type:        "BUY",
		Description: description,
		OrderID:     orderID,
	}
}

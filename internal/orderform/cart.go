// Package orderform hosts the three-stage order form: the mutable cart, its
// derived totals, the stage machine that gates on stock and balance checks,
// and the submission flow to the ledger backend.
package orderform

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
	"github.com/angelmondragon/orderdesk-backend/pkg/types"
)

// cartVersion is bumped when the serialized cart layout changes; drafts with
// another version are discarded.
const cartVersion = 1

// LineItem is one cart row.
type LineItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Quantity    int       `json:"quantity"`
	Rate        float64   `json:"rate"`
	Description string    `json:"description,omitempty"`
}

// Complete reports whether the line is fully specified.
func (l LineItem) Complete() bool {
	return l.VariantID != uuid.Nil && l.Quantity > 0 && money.IsFinite(l.Rate) && l.Rate >= 0
}

// Amount is quantity * rate; a non-finite rate contributes nothing.
func (l LineItem) Amount() float64 {
	return money.SumSafe(float64(l.Quantity) * l.Rate)
}

type Payment struct {
	AccountID uuid.UUID             `json:"account_id"`
	Amount    float64               `json:"amount"`
	Details   *types.PaymentDetails `json:"details,omitempty"`
}

// Cart is the serializable state of one order form session.
type Cart struct {
	Version               int                `json:"version"`
	SessionID             uuid.UUID          `json:"session_id"`
	OrganizationID        uuid.UUID          `json:"organization_id"`
	OrderType             enums.OrderType    `json:"order_type"`
	Stage                 enums.FormStage    `json:"stage"`
	EntityID              *uuid.UUID         `json:"entity_id,omitempty"`
	Description           string             `json:"description,omitempty"`
	OrderDate             *time.Time         `json:"order_date,omitempty"`
	Lines                 []LineItem         `json:"lines"`
	Discount              pricing.Adjustment `json:"discount"`
	Tax                   pricing.Adjustment `json:"tax"`
	Charges               []pricing.Charge   `json:"charges"`
	Payments              []Payment          `json:"payments"`
	VendorChargeAccountID *uuid.UUID         `json:"vendor_charge_account_id,omitempty"`
	// AutoPayment is set while the walk-in cash payment replaces manual entry.
	AutoPayment      bool     `json:"auto_payment"`
	FormError        string   `json:"form_error,omitempty"`
	ValidationErrors []string `json:"validation_errors"`
}

// NewCart returns an empty cart in the details stage.
func NewCart(sessionID, orgID uuid.UUID, orderType enums.OrderType) Cart {
	return Cart{
		Version:          cartVersion,
		SessionID:        sessionID,
		OrganizationID:   orgID,
		OrderType:        orderType,
		Stage:            enums.FormStageDetails,
		Lines:            []LineItem{},
		Discount:         pricing.Adjustment{Type: enums.AdjustmentFixed},
		Tax:              pricing.Adjustment{Type: enums.AdjustmentFixed},
		Charges:          []pricing.Charge{},
		Payments:         []Payment{},
		ValidationErrors: []string{},
	}
}

// Reset empties the cart under a new session id. The old id may already
// name a submission and the backend idempotency key, so it must not carry
// different contents.
func (c Cart) Reset() Cart {
	return NewCart(uuid.New(), c.OrganizationID, c.OrderType)
}

// withSession is c under another session id.
func (c Cart) withSession(id uuid.UUID) Cart {
	out := c.clone()
	out.SessionID = id
	return out
}

func (c Cart) pricingInput() pricing.Input {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, pricing.Line{Quantity: l.Quantity, Rate: l.Rate})
	}
	payments := make([]float64, 0, len(c.Payments))
	for _, p := range c.Payments {
		payments = append(payments, p.Amount)
	}
	return pricing.Input{
		Lines:    lines,
		Discount: c.Discount,
		Tax:      c.Tax,
		Charges:  c.Charges,
		Payments: payments,
	}
}

// Calculations derives the cart totals. They are never stored.
func (c Cart) Calculations() pricing.Calculations {
	return pricing.Calculate(c.pricingInput())
}

func (c Cart) clone() Cart {
	out := c
	out.Lines = append([]LineItem{}, c.Lines...)
	out.Charges = append([]pricing.Charge{}, c.Charges...)
	out.Payments = append([]Payment{}, c.Payments...)
	out.ValidationErrors = append([]string{}, c.ValidationErrors...)
	return out
}

// normalized replaces nil collections from older drafts with empty ones.
func (c Cart) normalized() Cart {
	out := c.clone()
	if out.Discount.Type == "" {
		out.Discount.Type = enums.AdjustmentFixed
	}
	if out.Tax.Type == "" {
		out.Tax.Type = enums.AdjustmentFixed
	}
	return out
}

func (c *Cart) clearErrors() {
	c.FormError = ""
	c.ValidationErrors = []string{}
}

package orderform

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
	"github.com/angelmondragon/orderdesk-backend/pkg/types"
)

// LineInput adds or replaces a line. A nil Rate takes the variant's default
// price for the order direction.
type LineInput struct {
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gt=0"`
	Rate        *float64  `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Description string    `json:"description,omitempty" validate:"max=500"`
}

// LinePatch edits the fields that are set.
type LinePatch struct {
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	Quantity    *int       `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Rate        *float64   `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=500"`
}

type ChargeInput struct {
	ID         *uuid.UUID           `json:"id,omitempty"`
	Name       string               `json:"name" validate:"required,max=120"`
	Kind       enums.AdjustmentType `json:"kind" validate:"required"`
	Value      float64              `json:"value" validate:"gte=0"`
	AbsorbedBy enums.ChargeBearer   `json:"absorbed_by" validate:"required"`
}

// DetailsInput updates counterparty and header fields. Absent fields are kept.
type DetailsInput struct {
	EntityID              types.NullableUUID `json:"entity_id"`
	VendorChargeAccountID types.NullableUUID `json:"vendor_charge_account_id"`
	Description           *string            `json:"description,omitempty" validate:"omitempty,max=1000"`
	OrderDate             *time.Time         `json:"order_date,omitempty"`
	ClearOrderDate        bool               `json:"clear_order_date,omitempty"`
}

// Form binds a cart to the reference data it is validated against. Every
// mutation ends with RecomputeDerivedFields.
type Form struct {
	cart Cart
	snap *refdata.Snapshot
}

func NewForm(cart Cart, snap *refdata.Snapshot) *Form {
	f := &Form{cart: cart, snap: snap}
	f.recompute()
	return f
}

// Cart returns a copy of the current state.
func (f *Form) Cart() Cart {
	return f.cart.clone()
}

func (f *Form) Snapshot() *refdata.Snapshot {
	return f.snap
}

func (f *Form) Calculations() pricing.Calculations {
	return f.cart.Calculations()
}

func (f *Form) recompute() {
	f.cart = RecomputeDerivedFields(f.cart, f.snap)
}

// RecomputeDerivedFields re-syncs every derived part of the cart after an
// edit: product ids on lines, the discount and tax mirrors against the new
// subtotal, and the walk-in cash payment.
func RecomputeDerivedFields(cart Cart, snap *refdata.Snapshot) Cart {
	out := cart.clone()
	for i, line := range out.Lines {
		if _, product, ok := snap.Variant(line.VariantID); ok {
			out.Lines[i].ProductID = product.ID
		}
	}

	sub := pricing.SubTotal(out.pricingInput().Lines)
	out.Discount = out.Discount.Resync(sub)
	out.Tax = out.Tax.Resync(sub)

	if register, ok := posRegister(out, snap); ok {
		grand := out.Calculations().GrandTotal
		out.Payments = []Payment{}
		if grand > 0 {
			out.Payments = append(out.Payments, Payment{AccountID: register.ID, Amount: grand})
		}
		out.AutoPayment = true
	} else if out.AutoPayment {
		out.Payments = []Payment{}
		out.AutoPayment = false
	}
	return out
}

// posRegister returns the cash register when the walk-in fast path applies:
// a SELL to the organization's default entity with a register configured.
func posRegister(cart Cart, snap *refdata.Snapshot) (refdata.Account, bool) {
	if cart.OrderType != enums.OrderTypeSell || cart.EntityID == nil {
		return refdata.Account{}, false
	}
	if !snap.IsDefaultEntity(*cart.EntityID) {
		return refdata.Account{}, false
	}
	return snap.CashRegister()
}

func (f *Form) requireStage(what string, stages ...enums.FormStage) error {
	for _, s := range stages {
		if f.cart.Stage == s {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s can only be edited in the %s stage", what, stages[0]).
		WithDetails(map[string]any{"stage": f.cart.Stage})
}

func (f *Form) lineFromInput(in LineInput) (LineItem, error) {
	variant, product, ok := f.snap.Variant(in.VariantID)
	if !ok {
		return LineItem{}, fmt.Errorf("variant %s not found", in.VariantID)
	}
	if in.Quantity <= 0 {
		return LineItem{}, fmt.Errorf("quantity must be greater than zero")
	}
	rate := variant.DefaultRate(f.cart.OrderType)
	if in.Rate != nil {
		if !money.IsFinite(*in.Rate) || *in.Rate < 0 {
			return LineItem{}, fmt.Errorf("rate must be a non-negative number")
		}
		rate = *in.Rate
	}
	return LineItem{
		ProductID:   product.ID,
		VariantID:   variant.ID,
		Quantity:    in.Quantity,
		Rate:        rate,
		Description: in.Description,
	}, nil
}

func (f *Form) edited() {
	f.cart.clearErrors()
	f.recompute()
}

// SetLines replaces every line.
func (f *Form) SetLines(inputs []LineInput) error {
	if err := f.requireStage("lines", enums.FormStageDetails); err != nil {
		return err
	}
	lines := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		line, err := f.lineFromInput(in)
		if err != nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: %s", i, err)
		}
		lines = append(lines, line)
	}
	f.cart.Lines = lines
	f.edited()
	return nil
}

func (f *Form) AddLine(in LineInput) error {
	if err := f.requireStage("lines", enums.FormStageDetails); err != nil {
		return err
	}
	line, err := f.lineFromInput(in)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	f.cart.Lines = append(f.cart.Lines, line)
	f.edited()
	return nil
}

// UpdateLine patches the line at index. Switching variant without a rate
// resets the rate to the new variant's default.
func (f *Form) UpdateLine(index int, patch LinePatch) error {
	if err := f.requireStage("lines", enums.FormStageDetails); err != nil {
		return err
	}
	if index < 0 || index >= len(f.cart.Lines) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "line %d does not exist", index)
	}
	current := f.cart.Lines[index]
	in := LineInput{
		VariantID:   current.VariantID,
		Quantity:    current.Quantity,
		Rate:        &current.Rate,
		Description: current.Description,
	}
	if patch.VariantID != nil && *patch.VariantID != current.VariantID {
		in.VariantID = *patch.VariantID
		in.Rate = nil
	}
	if patch.Quantity != nil {
		in.Quantity = *patch.Quantity
	}
	if patch.Rate != nil {
		in.Rate = patch.Rate
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	line, err := f.lineFromInput(in)
	if err != nil {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: %s", index, err)
	}
	f.cart.Lines[index] = line
	f.edited()
	return nil
}

func (f *Form) RemoveLine(index int) error {
	if err := f.requireStage("lines", enums.FormStageDetails); err != nil {
		return err
	}
	if index < 0 || index >= len(f.cart.Lines) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "line %d does not exist", index)
	}
	f.cart.Lines = append(f.cart.Lines[:index], f.cart.Lines[index+1:]...)
	f.edited()
	return nil
}

func (f *Form) adjustment(kind enums.AdjustmentType, value float64) (pricing.Adjustment, error) {
	if !kind.IsValid() {
		return pricing.Adjustment{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid adjustment type %q", kind)
	}
	if !money.IsFinite(value) || value < 0 {
		return pricing.Adjustment{}, pkgerrors.New(pkgerrors.CodeValidation, "value must be a non-negative number")
	}
	sub := pricing.SubTotal(f.cart.pricingInput().Lines)
	return pricing.NewAdjustment(kind, value, sub), nil
}

func (f *Form) SetDiscount(kind enums.AdjustmentType, value float64) error {
	if err := f.requireStage("discount", enums.FormStageDetails); err != nil {
		return err
	}
	adj, err := f.adjustment(kind, value)
	if err != nil {
		return err
	}
	f.cart.Discount = adj
	f.edited()
	return nil
}

func (f *Form) SetTax(kind enums.AdjustmentType, value float64) error {
	if err := f.requireStage("tax", enums.FormStageDetails); err != nil {
		return err
	}
	adj, err := f.adjustment(kind, value)
	if err != nil {
		return err
	}
	f.cart.Tax = adj
	f.edited()
	return nil
}

func (f *Form) SetCharges(inputs []ChargeInput) error {
	if err := f.requireStage("charges", enums.FormStageDetails); err != nil {
		return err
	}
	charges := make([]pricing.Charge, 0, len(inputs))
	for i, in := range inputs {
		if in.Name == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "charges[%d]: name is required", i)
		}
		if !in.Kind.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "charges[%d]: invalid kind %q", i, in.Kind)
		}
		if !in.AbsorbedBy.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "charges[%d]: invalid absorbed_by %q", i, in.AbsorbedBy)
		}
		if !money.IsFinite(in.Value) || in.Value < 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "charges[%d]: value must be a non-negative number", i)
		}
		id := uuid.New()
		if in.ID != nil && *in.ID != uuid.Nil {
			id = *in.ID
		}
		charges = append(charges, pricing.Charge{
			ID:                 id,
			Name:               in.Name,
			AmountOrPercentage: in.Value,
			Kind:               in.Kind,
			AbsorbedBy:         in.AbsorbedBy,
		})
	}
	f.cart.Charges = charges
	f.edited()
	return nil
}

// SetPayments replaces the manual payments. Rejected while the walk-in cash
// payment applies.
func (f *Form) SetPayments(payments []Payment) error {
	if err := f.requireStage("payments", enums.FormStagePayment); err != nil {
		return err
	}
	if f.cart.AutoPayment {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payments are set automatically for walk-in sales")
	}
	out := make([]Payment, 0, len(payments))
	for i, p := range payments {
		if _, ok := f.snap.Account(p.AccountID); !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "payments[%d]: account %s not found", i, p.AccountID)
		}
		if !money.IsFinite(p.Amount) || p.Amount <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "payments[%d]: amount must be greater than zero", i)
		}
		if err := p.Details.Validate(); err != nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "payments[%d]: %s", i, err)
		}
		out = append(out, p)
	}
	f.cart.Payments = out
	f.edited()
	return nil
}

func (f *Form) SetDetails(in DetailsInput) error {
	if err := f.requireStage("order details", enums.FormStageDetails, enums.FormStagePayment); err != nil {
		return err
	}
	entityID := in.EntityID.Apply(f.cart.EntityID)
	if entityID != nil {
		if _, ok := f.snap.Entity(*entityID); !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "entity %s not found", *entityID)
		}
	}
	vendorAccount := in.VendorChargeAccountID.Apply(f.cart.VendorChargeAccountID)
	if vendorAccount != nil {
		if _, ok := f.snap.Account(*vendorAccount); !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "account %s not found", *vendorAccount)
		}
	}
	f.cart.EntityID = entityID
	f.cart.VendorChargeAccountID = vendorAccount
	if in.Description != nil {
		f.cart.Description = *in.Description
	}
	switch {
	case in.ClearOrderDate:
		f.cart.OrderDate = nil
	case in.OrderDate != nil:
		date := in.OrderDate.UTC()
		f.cart.OrderDate = &date
	}
	f.edited()
	return nil
}

// Reset discards the cart contents and returns to the details stage under a
// new session. A form that is already reset is left as is, so a repeated
// reset yields the same cart.
func (f *Form) Reset() {
	if f.pristine() {
		return
	}
	f.cart = f.cart.Reset()
	f.recompute()
}

// pristine reports whether the cart equals a freshly reset one.
func (f *Form) pristine() bool {
	fresh := RecomputeDerivedFields(NewCart(f.cart.SessionID, f.cart.OrganizationID, f.cart.OrderType), f.snap)
	return reflect.DeepEqual(fresh, f.cart)
}

// renewSession moves the cart to a new session id without touching its
// contents.
func (f *Form) renewSession() uuid.UUID {
	f.cart = f.cart.withSession(uuid.New())
	return f.cart.SessionID
}

// VendorChargeAccount is the account business-absorbed charges are booked
// against: the cart's choice, else the organization default.
func (f *Form) VendorChargeAccount() (uuid.UUID, bool) {
	if f.cart.VendorChargeAccountID != nil {
		return *f.cart.VendorChargeAccountID, true
	}
	if f.snap != nil && f.snap.Organization.VendorChargeAccountID != nil {
		return *f.snap.Organization.VendorChargeAccountID, true
	}
	return uuid.Nil, false
}

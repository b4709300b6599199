package orderform

import (
	"github.com/angelmondragon/orderdesk-backend/internal/validation"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// Transition outcomes reported to metrics.
const (
	TransitionAdvanced = "advanced"
	TransitionBlocked  = "blocked"
	TransitionReverted = "reverted"
	TransitionReset    = "reset"
)

// Failure kinds recorded when a transition or submit is blocked.
const (
	FailureIncomplete   = "incomplete"
	FailureStock        = "stock"
	FailureBalance      = "balance"
	FailureCounterparty = "counterparty"
	FailureVendorCharge = "vendor_charge"
	FailureFinalStage   = "final_stage"

	// FailureSubmissionChanged marks a resubmit whose cart differs from the
	// order already created for the session.
	FailureSubmissionChanged = "submission_changed"
)

type Transition struct {
	From   enums.FormStage `json:"from"`
	To     enums.FormStage `json:"to"`
	Result string          `json:"result"`
	Kind   string          `json:"kind,omitempty"`
}

func (f *Form) stockCheck() validation.Result {
	lines := make([]validation.LineQuantity, 0, len(f.cart.Lines))
	for _, l := range f.cart.Lines {
		lines = append(lines, validation.LineQuantity{VariantID: l.VariantID, Quantity: l.Quantity})
	}
	return validation.Stock(f.cart.OrderType, lines, f.snap)
}

func (f *Form) balanceCheck() validation.Result {
	payments := make([]validation.PaymentAmount, 0, len(f.cart.Payments))
	for _, p := range f.cart.Payments {
		payments = append(payments, validation.PaymentAmount{AccountID: p.AccountID, Amount: p.Amount})
	}
	return validation.Balance(f.cart.OrderType, payments, f.snap)
}

func (f *Form) completeLines() int {
	n := 0
	for _, l := range f.cart.Lines {
		if l.Complete() {
			n++
		}
	}
	return n
}

// guard returns the failure kind and messages that keep the cart in its
// current stage, or an empty kind when it may advance.
func (f *Form) guard() (string, string, []string) {
	switch f.cart.Stage {
	case enums.FormStageDetails:
		if f.completeLines() == 0 {
			return FailureIncomplete, "Add at least one product with a quantity", nil
		}
		if res := f.stockCheck(); !res.IsValid {
			return FailureStock, "Some products do not have enough stock", res.Errors
		}
	case enums.FormStagePayment:
		calc := f.cart.Calculations()
		if f.cart.EntityID == nil && money.Round2(calc.RemainingAmount) > 0 {
			return FailureCounterparty, "Select a counterparty for an order that is not fully paid", nil
		}
		if res := f.balanceCheck(); !res.IsValid {
			return FailureBalance, "Some payments exceed the account balance", res.Errors
		}
		if calc.VendorCharges > 0 {
			if _, ok := f.VendorChargeAccount(); !ok {
				return FailureVendorCharge, "Select an account for business-paid charges", nil
			}
		}
	case enums.FormStageSummary:
		return FailureFinalStage, "The order is ready to submit", nil
	}
	return "", "", nil
}

// Next advances one stage when the current stage's checks pass. A blocked
// transition leaves the stage unchanged and records the failure on the cart.
func (f *Form) Next() (Transition, error) {
	from := f.cart.Stage
	kind, msg, issues := f.guard()
	if kind != "" {
		if issues == nil {
			issues = []string{}
		}
		f.cart.FormError = msg
		f.cart.ValidationErrors = issues
		return Transition{From: from, To: from, Result: TransitionBlocked, Kind: kind},
			pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(map[string]any{
				"stage":  from,
				"kind":   kind,
				"errors": issues,
			})
	}
	to, _ := from.Next()
	f.cart.Stage = to
	f.edited()
	return Transition{From: from, To: to, Result: TransitionAdvanced}, nil
}

// Back returns to an earlier stage. An empty target means the previous one.
func (f *Form) Back(target enums.FormStage) (Transition, error) {
	from := f.cart.Stage
	if target == "" {
		idx := from.Index()
		if idx <= 0 {
			return Transition{From: from, To: from, Result: TransitionBlocked},
				pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first stage")
		}
		target = enums.FormStageDetails
		if idx == 2 {
			target = enums.FormStagePayment
		}
	}
	if !target.IsValid() {
		return Transition{From: from, To: from, Result: TransitionBlocked},
			pkgerrors.Newf(pkgerrors.CodeValidation, "invalid stage %q", target)
	}
	if target.Index() >= from.Index() {
		return Transition{From: from, To: from, Result: TransitionBlocked},
			pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot go back from %s to %s", from, target)
	}
	f.cart.Stage = target
	f.edited()
	return Transition{From: from, To: target, Result: TransitionReverted}, nil
}

// ResetForm is Reset reported as a transition.
func (f *Form) ResetForm() Transition {
	from := f.cart.Stage
	f.Reset()
	return Transition{From: from, To: f.cart.Stage, Result: TransitionReset}
}

// SubmitReady re-runs every gate against the current cart so a draft edited
// under stale reference data cannot be submitted.
func (f *Form) SubmitReady() error {
	if f.cart.Stage != enums.FormStageSummary {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order can only be submitted from the %s stage", enums.FormStageSummary)
	}
	for _, stage := range []enums.FormStage{enums.FormStageDetails, enums.FormStagePayment} {
		probe := &Form{cart: f.cart.clone(), snap: f.snap}
		probe.cart.Stage = stage
		if kind, msg, issues := probe.guard(); kind != "" {
			if issues == nil {
				issues = []string{}
			}
			f.cart.FormError = msg
			f.cart.ValidationErrors = issues
			return pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(map[string]any{
				"stage":  stage,
				"kind":   kind,
				"errors": issues,
			})
		}
	}
	return nil
}

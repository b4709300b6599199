package enums

import "fmt"

// PaymentDetailKind discriminates the instrument details attached to a payment.
type PaymentDetailKind string

const (
	PaymentDetailCash         PaymentDetailKind = "cash"
	PaymentDetailCheque       PaymentDetailKind = "cheque"
	PaymentDetailBankTransfer PaymentDetailKind = "bank_transfer"
	// PaymentDetailOther carries an opaque object the backend understands.
	PaymentDetailOther PaymentDetailKind = "other"
)

var validPaymentDetailKinds = []PaymentDetailKind{
	PaymentDetailCash,
	PaymentDetailCheque,
	PaymentDetailBankTransfer,
	PaymentDetailOther,
}

// String implements fmt.Stringer.
func (p PaymentDetailKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentDetailKind.
func (p PaymentDetailKind) IsValid() bool {
	for _, candidate := range validPaymentDetailKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentDetailKind converts raw input into a PaymentDetailKind.
func ParsePaymentDetailKind(value string) (PaymentDetailKind, error) {
	for _, candidate := range validPaymentDetailKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment detail kind %q", value)
}

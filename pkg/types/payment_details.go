package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// CashDetails describes a cash handover.
type CashDetails struct {
	ReceivedBy string `json:"received_by,omitempty"`
}

// ChequeDetails identifies a paper cheque.
type ChequeDetails struct {
	Number string `json:"number"`
	Bank   string `json:"bank,omitempty"`
	// Date is the date written on the cheque, YYYY-MM-DD.
	Date string `json:"date,omitempty"`
}

// BankTransferDetails identifies a wire or ACH transfer.
type BankTransferDetails struct {
	Reference string `json:"reference"`
	Bank      string `json:"bank,omitempty"`
}

// PaymentDetails is a discriminated union keyed by "kind". Objects with an
// unknown kind decode as PaymentDetailOther and keep their original bytes.
type PaymentDetails struct {
	Kind         enums.PaymentDetailKind
	Cash         *CashDetails
	Cheque       *ChequeDetails
	BankTransfer *BankTransferDetails
	Other        json.RawMessage
}

func NewChequeDetails(number, bank, date string) *PaymentDetails {
	return &PaymentDetails{
		Kind:   enums.PaymentDetailCheque,
		Cheque: &ChequeDetails{Number: number, Bank: bank, Date: date},
	}
}

func NewBankTransferDetails(reference, bank string) *PaymentDetails {
	return &PaymentDetails{
		Kind:         enums.PaymentDetailBankTransfer,
		BankTransfer: &BankTransferDetails{Reference: reference, Bank: bank},
	}
}

// Validate checks the fields required by each kind.
func (d *PaymentDetails) Validate() error {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case enums.PaymentDetailCash:
		return nil
	case enums.PaymentDetailCheque:
		if d.Cheque == nil || strings.TrimSpace(d.Cheque.Number) == "" {
			return fmt.Errorf("cheque details require a number")
		}
	case enums.PaymentDetailBankTransfer:
		if d.BankTransfer == nil || strings.TrimSpace(d.BankTransfer.Reference) == "" {
			return fmt.Errorf("bank transfer details require a reference")
		}
	case enums.PaymentDetailOther:
		if len(d.Other) == 0 {
			return fmt.Errorf("opaque payment details are empty")
		}
	default:
		return fmt.Errorf("invalid payment detail kind %q", d.Kind)
	}
	return nil
}

// MarshalJSON flattens the active variant next to its kind.
func (d PaymentDetails) MarshalJSON() ([]byte, error) {
	var body any
	switch d.Kind {
	case enums.PaymentDetailOther:
		if len(d.Other) == 0 {
			return []byte(`{"kind":"other"}`), nil
		}
		return d.Other, nil
	case enums.PaymentDetailCash:
		body = d.Cash
	case enums.PaymentDetailCheque:
		body = d.Cheque
	case enums.PaymentDetailBankTransfer:
		body = d.BankTransfer
	default:
		return nil, fmt.Errorf("invalid payment detail kind %q", d.Kind)
	}

	fields := map[string]any{}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	fields["kind"] = d.Kind
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *PaymentDetails) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = PaymentDetails{}
		return nil
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return fmt.Errorf("payment details: %w", err)
	}

	out := PaymentDetails{Kind: enums.PaymentDetailKind(head.Kind)}
	switch out.Kind {
	case enums.PaymentDetailCash:
		out.Cash = &CashDetails{}
		if err := json.Unmarshal(trimmed, out.Cash); err != nil {
			return fmt.Errorf("cash details: %w", err)
		}
	case enums.PaymentDetailCheque:
		out.Cheque = &ChequeDetails{}
		if err := json.Unmarshal(trimmed, out.Cheque); err != nil {
			return fmt.Errorf("cheque details: %w", err)
		}
	case enums.PaymentDetailBankTransfer:
		out.BankTransfer = &BankTransferDetails{}
		if err := json.Unmarshal(trimmed, out.BankTransfer); err != nil {
			return fmt.Errorf("bank transfer details: %w", err)
		}
	default:
		out.Kind = enums.PaymentDetailOther
		out.Other = append(json.RawMessage(nil), trimmed...)
	}
	*d = out
	return nil
}

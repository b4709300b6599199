package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OrderSubmittedEvent is emitted once an order form submission completes.
type OrderSubmittedEvent struct {
	SubmissionID      uuid.UUID       `json:"submission_id"`
	OrganizationID    uuid.UUID       `json:"organization_id"`
	OrderID           uuid.UUID       `json:"order_id"`
	OrderType         enums.OrderType `json:"order_type"`
	EntityID          *uuid.UUID      `json:"entity_id,omitempty"`
	LineCount         int             `json:"line_count"`
	GrandTotal        float64         `json:"grand_total"`
	TotalPaid         float64         `json:"total_paid"`
	VendorCharges     float64         `json:"vendor_charges"`
	VendorChargeTxnID *uuid.UUID      `json:"vendor_charge_txn_id,omitempty"`
	SubmittedAt       time.Time       `json:"submitted_at"`
}

// SettlementAllocation is one order paid by a settlement run.
type SettlementAllocation struct {
	OrderID       uuid.UUID `json:"order_id"`
	Amount        float64   `json:"amount"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// SettlementRecordedEvent summarizes a completed settlement run.
type SettlementRecordedEvent struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	EntityID       uuid.UUID              `json:"entity_id"`
	AccountID      uuid.UUID              `json:"account_id"`
	Requested      float64                `json:"requested"`
	Allocated      float64                `json:"allocated"`
	Unallocated    float64                `json:"unallocated"`
	Allocations    []SettlementAllocation `json:"allocations"`
}

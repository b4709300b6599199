package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OrderSubmission tracks one order form session's progress through the
// backend calls. ID is the form session id, which doubles as the backend
// idempotency key. PayloadHash fingerprints what the session sent, so a
// retry with different contents is told apart from a resume.
type OrderSubmission struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID    uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index"`
	UserID            uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	OrderType         enums.OrderType        `gorm:"column:order_type;type:text;not null"`
	Status            enums.SubmissionStatus `gorm:"column:status;type:text;not null"`
	Payload           json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	PayloadHash       string                 `gorm:"column:payload_hash;type:text;not null;default:''"`
	GrandTotal        decimal.Decimal        `gorm:"column:grand_total;type:numeric(14,2);not null"`
	VendorCharges     decimal.Decimal        `gorm:"column:vendor_charges;type:numeric(14,2);not null"`
	BackendOrderID    *uuid.UUID             `gorm:"column:backend_order_id;type:uuid"`
	VendorChargeTxnID *uuid.UUID             `gorm:"column:vendor_charge_txn_id;type:uuid"`
	Attempts          int                    `gorm:"column:attempts;not null;default:0"`
	LastError         *string                `gorm:"column:last_error"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt       *time.Time             `gorm:"column:completed_at"`
}

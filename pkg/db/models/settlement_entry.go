package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementEntry is one allocation of a settlement run that the backend accepted.
type SettlementEntry struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	IdempotencyKey string          `gorm:"column:idempotency_key;not null;uniqueIndex:ux_settlement_entries_run_order"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_settlement_entries_run_order"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index"`
	EntityID       uuid.UUID       `gorm:"column:entity_id;type:uuid;not null"`
	AccountID      uuid.UUID       `gorm:"column:account_id;type:uuid;not null"`
	ActorUserID    uuid.UUID       `gorm:"column:actor_user_id;type:uuid;not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	TransactionID  uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (e *SettlementEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OrderFormDraft persists a serialized cart when drafts are stored in the database.
type OrderFormDraft struct {
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	OrderType      enums.OrderType `gorm:"column:order_type;type:text;primaryKey"`
	Payload        string          `gorm:"column:payload;type:text;not null"`
	ExpiresAt      time.Time       `gorm:"column:expires_at;not null;index"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

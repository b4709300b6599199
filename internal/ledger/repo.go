// Package ledger keeps the local record of settlement allocations the backend
// accepted, so a retried settlement run can skip what was already posted.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Repository manages persistence for settlement entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.SettlementEntry) error
	ListByRun(ctx context.Context, idempotencyKey string) ([]models.SettlementEntry, error)
	SumByRun(ctx context.Context, idempotencyKey string) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.SettlementEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByRun(ctx context.Context, idempotencyKey string) ([]models.SettlementEntry, error) {
	var entries []models.SettlementEntry
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumByRun(ctx context.Context, idempotencyKey string) (decimal.Decimal, error) {
	entries, err := r.ListByRun(ctx, idempotencyKey)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

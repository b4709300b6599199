// Package submissions tracks order form submissions so a retried submit
// resumes where the previous attempt stopped.
package submissions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, id uuid.UUID) (*models.OrderSubmission, error)
	Create(ctx context.Context, sub *models.OrderSubmission) error
	MarkOrderCreated(ctx context.Context, id, orderID uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, vendorChargeTxnID *uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a submissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Find returns nil without error when no submission exists for id.
func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.OrderSubmission, error) {
	var sub models.OrderSubmission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Create(ctx context.Context, sub *models.OrderSubmission) error {
	if sub.Status == "" {
		sub.Status = enums.SubmissionStatusPending
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) MarkOrderCreated(ctx context.Context, id, orderID uuid.UUID) error {
	return r.update(ctx, id, map[string]any{
		"status":           enums.SubmissionStatusOrderCreated,
		"backend_order_id": orderID,
		"last_error":       nil,
	})
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, vendorChargeTxnID *uuid.UUID, at time.Time) error {
	updates := map[string]any{
		"status":       enums.SubmissionStatusCompleted,
		"completed_at": at,
		"last_error":   nil,
	}
	if vendorChargeTxnID != nil {
		updates["vendor_charge_txn_id"] = *vendorChargeTxnID
	}
	return r.update(ctx, id, updates)
}

// MarkFailed records the error and bumps the attempt counter. The status
// only moves to failed when no backend order exists yet.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	err := r.db.WithContext(ctx).Model(&models.OrderSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error": msg,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.OrderSubmission{}).
		Where("id = ? AND status = ?", id, enums.SubmissionStatusPending).
		Update("status", enums.SubmissionStatusFailed).Error
}

func (r *repository) update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.OrderSubmission{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

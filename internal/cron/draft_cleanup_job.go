package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/orderform"
)

type draftPurger func(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

// NewDraftCleanupJob removes expired order form drafts from the database
// store. Redis drafts expire on their own key ttl.
func NewDraftCleanupJob(db *gorm.DB) (Job, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &draftCleanupJob{db: db, purge: orderform.PurgeExpiredDrafts, now: time.Now}, nil
}

type draftCleanupJob struct {
	db    *gorm.DB
	purge draftPurger
	now   func() time.Time
}

func (j *draftCleanupJob) Name() string { return "draft-cleanup" }

func (j *draftCleanupJob) Run(ctx context.Context) (int64, error) {
	n, err := j.purge(ctx, j.db, j.now())
	if err != nil {
		return 0, fmt.Errorf("purge drafts: %w", err)
	}
	return n, nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type publishedEventRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	CountByReason(ctx context.Context) (map[enums.OutboxDLQErrorReason]int64, error)
}

type OutboxRetentionJobParams struct {
	Logger          *logger.Logger
	DB              txRunner
	Events          publishedEventRepo
	DeadLetters     deadLetterRepo
	Retention       time.Duration
	DeadLetterAfter time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows and, when a dead letter
// repository is set, aged dead letters. Pending rows are left alone.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	dlqRetention := params.DeadLetterAfter
	if dlqRetention <= 0 {
		dlqRetention = defaultDLQRetention
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    retention,
		dlqRetention: dlqRetention,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       publishedEventRepo
	deadLetters  deadLetterRepo
	retention    time.Duration
	dlqRetention time.Duration
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var published, dead int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.events.DeletePublishedBefore(ctx, tx, cutoff); err != nil {
			return err
		}
		if j.deadLetters == nil {
			return nil
		}
		dead, err = j.deadLetters.DeleteFailedBefore(ctx, tx, dlqCutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"dlq_cutoff":   dlqCutoff,
		"published":    published,
		"dead_letters": dead,
	}), "cron.outbox_retention.complete")
	j.reportBacklog(ctx)
	return published + dead, nil
}

// reportBacklog warns about dead letters still inside the retention window.
func (j *outboxRetentionJob) reportBacklog(ctx context.Context) {
	if j.deadLetters == nil {
		return
	}
	counts, err := j.deadLetters.CountByReason(ctx)
	if err != nil {
		j.logg.Error(ctx, "cron.outbox_retention.backlog_failed", err)
		return
	}
	fields := map[string]any{}
	for reason, n := range counts {
		if n > 0 {
			fields["dlq_"+string(reason)] = n
		}
	}
	if len(fields) > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, fields), "cron.outbox_retention.dlq_backlog")
	}
}

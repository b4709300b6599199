// Package cron runs the periodic maintenance jobs: outbox and dead letter
// retention plus expired draft cleanup. One replica runs a cycle at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/lock"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

const (
	defaultInterval = time.Hour
	defaultLockTTL  = 30 * time.Minute
)

// Locker holds a cluster-wide lease for the duration of fn.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Metrics interface {
	ObserveDuration(job string, duration time.Duration)
	IncRun(job, result string)
	AddRowsDeleted(job string, n int64)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	LockKey  string
	LockTTL  time.Duration
	Metrics  Metrics
	Interval time.Duration
}

type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	lockKey  string
	lockTTL  time.Duration
	metrics  Metrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.LockKey == "" {
		return nil, fmt.Errorf("lock key required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locker:   params.Locker,
		lockKey:  params.LockKey,
		lockTTL:  lockTTL,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	err := s.locker.WithLock(ctx, s.lockKey, s.lockTTL, func(ctx context.Context) error {
		s.logg.Info(ctx, "scheduled run starting")
		for _, job := range s.registry.Jobs() {
			s.runJob(ctx, job)
		}
		s.logg.Info(ctx, "scheduled run complete")
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return nil
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	deleted, err := job.Run(jobCtx)
	duration := time.Since(start)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms":  duration.Milliseconds(),
		"rows_deleted": deleted,
	})
	if s.metrics != nil {
		s.metrics.ObserveDuration(job.Name(), duration)
		s.metrics.AddRowsDeleted(job.Name(), deleted)
	}
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.record(job.Name(), "failure")
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.record(job.Name(), "success")
}

func (s *Service) record(job, result string) {
	if s.metrics != nil {
		s.metrics.IncRun(job, result)
	}
}

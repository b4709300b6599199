package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/registry"
)

func submittedRow(t *testing.T, eventID string, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderSubmitted,
		AggregateType: enums.AggregateOrderSubmission,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		AttemptCount:  attempts,
	}
}

func submittedResolution() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventOrderSubmitted,
			AggregateType: enums.AggregateOrderSubmission,
			Topic:         "orders-topic",
		},
		Payload: &payloads.OrderSubmittedEvent{},
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		submittedRow(t, "event-one", 0),
		submittedRow(t, "event-two", 0),
	}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	metrics := &fakeMetrics{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: submittedResolution()}, &fakeDLQRepo{}, metrics, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("expected second row marked published, got %v", repo.published)
	}
	if metrics.published != 1 || len(metrics.failed) != 1 || metrics.failed[0] != failureRetry {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
	if metrics.batches != 1 {
		t.Fatalf("expected one observed batch, got %d", metrics.batches)
	}
}

func TestPublishSetsMessageAttributes(t *testing.T) {
	row := submittedRow(t, "attrs", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: submittedResolution()}, &fakeDLQRepo{}, nil, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if !bytes.Equal(msg.Data, row.Payload) {
		t.Fatalf("message data must be the stored envelope")
	}
	want := map[string]string{
		"event_id":       row.ID.String(),
		"event_type":     "order.submitted",
		"aggregate_type": string(enums.AggregateOrderSubmission),
		"aggregate_id":   row.AggregateID.String(),
	}
	for k, v := range want {
		if msg.Attributes[k] != v {
			t.Fatalf("attribute %s: expected %q, got %q", k, v, msg.Attributes[k])
		}
	}
}

func TestProcessBatchDeadLettersUnresolvable(t *testing.T) {
	row := submittedRow(t, "unresolvable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	metrics := &fakeMetrics{}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlqRepo, metrics, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != row.ID || !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatalf("dlq entry does not match row: %+v", entry)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonUnresolvable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row marked terminal")
	}
	if len(metrics.failed) != 1 || metrics.failed[0] != string(enums.OutboxDLQReasonUnresolvable) {
		t.Fatalf("unexpected failure metrics: %v", metrics.failed)
	}
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	row := submittedRow(t, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: submittedResolution()}, dlqRepo, nil, &config.OutboxConfig{
		BatchSize:    1,
		PollInterval: 100 * time.Millisecond,
		MaxAttempts:  2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlqRepo.entries))
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows are not marked for retry")
	}
}

func TestProcessBatchMissingPublisherIsTerminal(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{submittedRow(t, "no-topic", 0)}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: submittedResolution()}, dlqRepo, nil, nil)
	service.publisherFactory = func(string) publisher { return nil }

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected dlq entry for unroutable event")
	}
	if got := dlqRepo.entries[0].ErrorReason; got != enums.OutboxDLQReasonUnroutable || !got.Replayable() {
		t.Fatalf("unexpected error reason: %s", got)
	}
}

func TestEmptyBatchIsNotProcessed(t *testing.T) {
	metrics := &fakeMetrics{}
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, metrics, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
	if metrics.batches != 0 {
		t.Fatalf("idle polls are not observed")
	}
}

func TestBackoffAndDefaults(t *testing.T) {
	if got := nextBackoff(time.Second, time.Second, 3*time.Second); got != 2*time.Second {
		t.Fatalf("expected doubling, got %s", got)
	}
	if got := nextBackoff(2*time.Second, time.Second, 3*time.Second); got != 3*time.Second {
		t.Fatalf("expected ceiling, got %s", got)
	}
	if got := withJitter(time.Second); got < time.Second || got >= time.Second+jitterWindow {
		t.Fatalf("jitter out of range: %s", got)
	}

	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{}, &fakeDLQRepo{}, nil, &config.OutboxConfig{})
	if service.batchSize != defaultBatchSize || service.maxAttempts != defaultMaxAttempts ||
		service.pollInterval != defaultPollInterval || service.publishTimeout != defaultPublishTimeout {
		t.Fatalf("zero config must fall back to defaults: %+v", service)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{}, &fakeDLQRepo{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, metrics *fakeMetrics, override *config.OutboxConfig) *Service {
	t.Helper()
	cfg := config.OutboxConfig{
		BatchSize:    2,
		PollInterval: 100 * time.Millisecond,
		MaxAttempts:  5,
	}
	if override != nil {
		cfg = *override
	}
	params := ServiceParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		DLQRepository:    dlq,
		PublisherFactory: func(string) publisher { return pub },
	}
	if metrics != nil {
		params.Metrics = metrics
	}
	service, err := NewService(params)
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	if len(f.results) == 0 {
		return nil
	}
	f.sent = append(f.sent, msg)
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope = outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: time.Now()}
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeMetrics struct {
	batches   int
	published int
	failed    []string
}

func (f *fakeMetrics) ObserveBatch(time.Duration) { f.batches++ }

func (f *fakeMetrics) IncPublished(string) { f.published++ }

func (f *fakeMetrics) IncFailed(_, reason string) { f.failed = append(f.failed, reason) }

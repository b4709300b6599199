package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}); err != nil {
		t.Fatalf("migrate outbox: %v", err)
	}
	return db
}

func submittedEvent(aggregate uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventOrderSubmitted,
		AggregateType: enums.AggregateOrderSubmission,
		AggregateID:   aggregate,
		Actor:         &ActorRef{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "staff"},
		Data:          map[string]any{"grand_total": 1075},
	}
}

func TestServiceEmitWritesEnvelope(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	aggregate := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, submittedEvent(aggregate))
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, aggregate, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.Equal(t, string(enums.EventOrderSubmitted), envelope.EventType)
	require.Equal(t, "staff", envelope.Actor.Role)
	require.JSONEq(t, `{"grand_total":1075}`, string(envelope.Data))

	var data struct {
		GrandTotal float64 `json:"grand_total"`
	}
	require.NoError(t, envelope.DecodeData(&data))
	require.Equal(t, 1075.0, data.GrandTotal)
}

func TestServiceEmitRollsBackWithTransaction(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, submittedEvent(uuid.New())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestServiceEmitIfNotExistsIsOncePerAggregate(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	aggregate := uuid.New()

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, submittedEvent(aggregate))
		})
		require.NoError(t, err)
	}

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestServiceEmitValidates(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil)
	require.Error(t, svc.Emit(context.Background(), nil, submittedEvent(uuid.New())))

	db := newTestDB(t)
	bad := submittedEvent(uuid.Nil)
	require.Error(t, svc.Emit(context.Background(), db, bad))

	bad = submittedEvent(uuid.New())
	bad.EventType = "order.deleted"
	require.Error(t, svc.Emit(context.Background(), db, bad))

	bad = submittedEvent(uuid.New())
	bad.AggregateType = enums.AggregateSettlementRun
	require.Error(t, svc.Emit(context.Background(), db, bad))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	first, second := uuid.New(), uuid.New()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, submittedEvent(first)); err != nil {
			return err
		}
		return svc.Emit(context.Background(), tx, submittedEvent(second))
	}))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(db, rows[1].ID, errors.New("unavailable")))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].AttemptCount)
	require.Equal(t, "unavailable", *pending[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, pending[0].ID, errors.New("gave up"), 3))
	pending, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	db := newTestDB(t)
	dlq := NewDLQRepository(db)
	eventID := uuid.New()
	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventSettlementRecorded,
		AggregateType: enums.AggregateSettlementRun,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDLQRepositoryIgnoresDuplicatesAndCountsReasons(t *testing.T) {
	db := newTestDB(t)
	dlq := NewDLQRepository(db)
	entry := func(eventID uuid.UUID, reason enums.OutboxDLQErrorReason) models.OutboxDLQ {
		return models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventOrderSubmitted,
			AggregateType: enums.AggregateOrderSubmission,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   reason,
		}
	}

	repeated := uuid.New()
	require.NoError(t, dlq.InsertTx(db, entry(repeated, enums.OutboxDLQReasonMaxAttempts)))
	require.NoError(t, dlq.InsertTx(db, entry(repeated, enums.OutboxDLQReasonMaxAttempts)))
	require.NoError(t, dlq.InsertTx(db, entry(uuid.New(), enums.OutboxDLQReasonUnroutable)))
	require.Error(t, dlq.InsertTx(db, entry(uuid.New(), "exploded")))

	counts, err := dlq.CountByReason(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[enums.OutboxDLQReasonMaxAttempts])
	require.Equal(t, int64(1), counts[enums.OutboxDLQReasonUnroutable])
}

func TestTruncateDLQErrorKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxDLQErrorLen-1) + "é"
	got := truncateDLQError(msg)
	require.True(t, utf8.ValidString(got))
	require.Len(t, got, maxDLQErrorLen-1)
}

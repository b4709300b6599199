package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/ledger"
	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
)

type fakeRefs struct {
	snap        *refdata.Snapshot
	entity      refdata.Entity
	invalidated int
}

func (f *fakeRefs) Load(context.Context, uuid.UUID) (*refdata.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeRefs) Entity(_ context.Context, _ uuid.UUID, entityID uuid.UUID) (refdata.Entity, error) {
	if entityID != f.entity.ID {
		return refdata.Entity{}, pkgerrors.New(pkgerrors.CodeNotFound, "entity not found")
	}
	return f.entity, nil
}

func (f *fakeRefs) Invalidate(context.Context, uuid.UUID) error {
	f.invalidated++
	return nil
}

type postCall struct {
	orderID uuid.UUID
	key     string
	payload backend.OrderTransactionRequest
}

type fakePoster struct {
	mu     sync.Mutex
	calls  []postCall
	failOn map[uuid.UUID]error
}

func (f *fakePoster) CreateOrderTransaction(_ context.Context, _ uuid.UUID, orderID uuid.UUID, key string, payload backend.OrderTransactionRequest) (backend.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[orderID]; err != nil {
		return backend.Transaction{}, err
	}
	f.calls = append(f.calls, postCall{orderID: orderID, key: key, payload: payload})
	return backend.Transaction{ID: uuid.New()}, nil
}

type fakeMetrics struct {
	results []string
}

func (f *fakeMetrics) IncSettlementAllocation(result string) {
	f.results = append(f.results, result)
}

type fixture struct {
	svc     *Service
	refs    *fakeRefs
	poster  *fakePoster
	metrics *fakeMetrics
	db      *gorm.DB
	actor   permissions.Actor
	orderA  refdata.EntityOrder
	orderB  refdata.EntityOrder
	account uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.SettlementEntry{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	orgID := uuid.New()
	accountID := uuid.New()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	orderA := refdata.EntityOrder{ID: uuid.New(), Type: enums.OrderTypeBuy, TotalAmount: 300, CreatedAt: created}
	orderB := refdata.EntityOrder{ID: uuid.New(), Type: enums.OrderTypeBuy, TotalAmount: 500, CreatedAt: created.Add(time.Hour)}
	entity := refdata.Entity{ID: uuid.New(), Name: "Harbor Supplies", Orders: []refdata.EntityOrder{orderB, orderA}}
	snap := refdata.NewSnapshot(
		refdata.Organization{ID: orgID, Name: "Corner Shop"},
		nil,
		[]refdata.Account{{ID: accountID, Name: "Main bank", Type: enums.AccountTypeBank, Balance: 5000}},
		[]refdata.Entity{entity},
		time.Now(),
	)

	refs := &fakeRefs{snap: snap, entity: entity}
	poster := &fakePoster{failOn: map[uuid.UUID]error{}}
	metrics := &fakeMetrics{}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		References: refs,
		Poster:     poster,
		Ledger:     ledgerSvc,
		Tx:         db.Wrap(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:    metrics,
	})
	if err != nil {
		t.Fatalf("settlement service: %v", err)
	}
	return &fixture{
		svc:     svc,
		refs:    refs,
		poster:  poster,
		metrics: metrics,
		db:      conn,
		actor:   permissions.Actor{UserID: uuid.New(), OrganizationID: orgID, Role: enums.MemberRoleManager},
		orderA:  orderA,
		orderB:  orderB,
		account: accountID,
	}
}

func (f *fixture) input(key string, amount float64) SettleInput {
	return SettleInput{
		EntityID:       f.refs.entity.ID,
		AccountID:      f.account,
		Amount:         amount,
		IdempotencyKey: key,
	}
}

func (f *fixture) outboxCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventSettlementRecorded).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}

func TestExecutePostsCentAmounts(t *testing.T) {
	f := newFixture(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	nearlyPaid := refdata.EntityOrder{ID: uuid.New(), Type: enums.OrderTypeBuy, TotalAmount: 10.3, PaidTillNow: 10.2, CreatedAt: created}
	open := refdata.EntityOrder{ID: uuid.New(), Type: enums.OrderTypeBuy, TotalAmount: 5, CreatedAt: created.Add(time.Hour)}
	f.refs.entity.Orders = []refdata.EntityOrder{open, nearlyPaid}

	res, err := f.svc.Execute(context.Background(), f.actor, f.input("run-cents", 1.1))
	require.NoError(t, err)
	require.Equal(t, 1.1, res.Allocated)

	require.Len(t, f.poster.calls, 2)
	require.Equal(t, nearlyPaid.ID, f.poster.calls[0].orderID)
	require.Equal(t, 0.1, f.poster.calls[0].payload.Amount)
	require.Equal(t, open.ID, f.poster.calls[1].orderID)
	require.Equal(t, 1.0, f.poster.calls[1].payload.Amount)
}

func TestExecutePostsEachAllocation(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Execute(context.Background(), f.actor, f.input("run-700", 700))
	require.NoError(t, err)

	require.Len(t, res.Allocations, 2)
	require.Equal(t, f.orderA.ID, res.Allocations[0].OrderID)
	require.Equal(t, 300.0, res.Allocations[0].Amount)
	require.Equal(t, f.orderB.ID, res.Allocations[1].OrderID)
	require.Equal(t, 400.0, res.Allocations[1].Amount)
	require.Equal(t, 700.0, res.Allocated)
	require.Zero(t, res.Unallocated)

	require.Len(t, f.poster.calls, 2)
	first := f.poster.calls[0]
	require.Equal(t, "PAYMENT", first.payload.Details.Type)
	require.Equal(t, defaultDescription, first.payload.Details.Description)
	require.Equal(t, f.account, first.payload.AccountID)
	require.Equal(t, RunID(f.actor.OrganizationID, "run-700").String()+":"+f.orderA.ID.String(), first.key)

	require.Equal(t, int64(1), f.outboxCount(t))
	require.Equal(t, 1, f.refs.invalidated)
	require.Equal(t, []string{"posted", "posted"}, f.metrics.results)
}

func TestExecuteResumesAfterPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.poster.failOn[f.orderB.ID] = pkgerrors.New(pkgerrors.CodeDependency, "ledger backend unavailable")

	_, err := f.svc.Execute(context.Background(), f.actor, f.input("run-retry", 700))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Len(t, f.poster.calls, 1)
	require.Zero(t, f.outboxCount(t))

	delete(f.poster.failOn, f.orderB.ID)
	res, err := f.svc.Execute(context.Background(), f.actor, f.input("run-retry", 700))
	require.NoError(t, err)

	require.Len(t, f.poster.calls, 2)
	require.Equal(t, f.orderB.ID, f.poster.calls[1].orderID)
	require.Equal(t, 400.0, f.poster.calls[1].payload.Amount)

	require.Len(t, res.Allocations, 2)
	require.True(t, res.Allocations[0].Replayed)
	require.Equal(t, f.orderA.ID, res.Allocations[0].OrderID)
	require.False(t, res.Allocations[1].Replayed)
	require.Equal(t, 700.0, res.Allocated)
	require.Equal(t, int64(1), f.outboxCount(t))
	require.Equal(t, []string{"posted", "failed", "posted"}, f.metrics.results)
}

func TestExecuteReplayPostsNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Execute(context.Background(), f.actor, f.input("run-once", 700))
	require.NoError(t, err)

	res, err := f.svc.Execute(context.Background(), f.actor, f.input("run-once", 700))
	require.NoError(t, err)
	require.Len(t, f.poster.calls, 2)
	for _, a := range res.Allocations {
		require.True(t, a.Replayed)
	}
	require.Equal(t, 700.0, res.Allocated)
	require.Equal(t, int64(1), f.outboxCount(t))
}

func TestExecuteReportsUnallocated(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Execute(context.Background(), f.actor, f.input("run-big", 1000))
	require.NoError(t, err)
	require.Equal(t, 800.0, res.Allocated)
	require.Equal(t, 200.0, res.Unallocated)
}

func TestExecuteRejectsKeyReuseForOtherAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Execute(context.Background(), f.actor, f.input("run-shared", 100))
	require.NoError(t, err)

	other := uuid.New()
	f.refs.snap = refdata.NewSnapshot(
		f.refs.snap.Organization,
		nil,
		[]refdata.Account{{ID: f.account, Type: enums.AccountTypeBank}, {ID: other, Type: enums.AccountTypeCash}},
		f.refs.snap.Entities,
		time.Now(),
	)
	in := f.input("run-shared", 100)
	in.AccountID = other
	_, err = f.svc.Execute(context.Background(), f.actor, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdempotency))
}

func TestExecuteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unknownAccount := f.input("run-x", 100)
	unknownAccount.AccountID = uuid.New()
	_, err := f.svc.Execute(ctx, f.actor, unknownAccount)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	for name, in := range map[string]SettleInput{
		"missing key":     f.input("", 100),
		"zero amount":     f.input("run-x", 0),
		"missing account": {EntityID: f.refs.entity.ID, Amount: 10, IdempotencyKey: "run-x"},
	} {
		_, err := f.svc.Execute(ctx, f.actor, in)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	staff := f.actor
	staff.Role = enums.MemberRoleStaff
	_, err = f.svc.Execute(ctx, staff, f.input("run-x", 100))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	require.Empty(t, f.poster.calls)
}

func TestPreviewDoesNotPost(t *testing.T) {
	f := newFixture(t)
	viewer := f.actor
	viewer.Role = enums.MemberRoleViewer

	plan, err := f.svc.Preview(context.Background(), viewer, f.refs.entity.ID, 700)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 2)
	require.Empty(t, f.poster.calls)

	_, err = f.svc.Preview(context.Background(), viewer, f.refs.entity.ID, -1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Preview(context.Background(), viewer, uuid.New(), 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error")
	}
	f := newFixture(t)
	_, err := NewService(ServiceParams{
		References: f.refs,
		Poster:     f.poster,
		Ledger:     f.svc.ledger,
		Tx:         f.svc.tx,
		Outbox:     f.svc.outbox,
		Priority:   enums.SettlementPriority("newest_first"),
	})
	require.Error(t, err)
}

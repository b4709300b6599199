package settlement

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/ledger"
	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
)

const (
	paymentTransactionType = "PAYMENT"
	defaultDescription     = "Settlement payment"
)

// runNamespace derives stable outbox aggregate ids from idempotency keys.
var runNamespace = uuid.MustParse("6f1c2a52-7d0e-4a8e-9b43-0f6c1d2e3a71")

// ReferenceReader is the slice of refdata.Service settlement needs.
type ReferenceReader interface {
	Load(ctx context.Context, orgID uuid.UUID) (*refdata.Snapshot, error)
	Entity(ctx context.Context, orgID, entityID uuid.UUID) (refdata.Entity, error)
	Invalidate(ctx context.Context, orgID uuid.UUID) error
}

// TransactionPoster posts a payment against one backend order.
type TransactionPoster interface {
	CreateOrderTransaction(ctx context.Context, orgID, orderID uuid.UUID, idempotencyKey string, payload backend.OrderTransactionRequest) (backend.Transaction, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type EventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Metrics interface {
	IncSettlementAllocation(result string)
}

// SettleInput is one settlement request. IdempotencyKey identifies the run
// across retries.
type SettleInput struct {
	EntityID       uuid.UUID `json:"entity_id" validate:"required"`
	AccountID      uuid.UUID `json:"account_id" validate:"required"`
	Amount         float64   `json:"amount" validate:"gt=0"`
	Description    string    `json:"description"`
	IdempotencyKey string    `json:"-"`
}

// PostedAllocation is an allocation the backend accepted.
type PostedAllocation struct {
	Allocation
	TransactionID uuid.UUID `json:"transaction_id"`
	// Replayed marks allocations posted by an earlier attempt of the same run.
	Replayed bool `json:"replayed"`
}

// Result summarizes a settlement run.
type Result struct {
	EntityID    uuid.UUID          `json:"entity_id"`
	AccountID   uuid.UUID          `json:"account_id"`
	Requested   float64            `json:"requested"`
	Allocated   float64            `json:"allocated"`
	Unallocated float64            `json:"unallocated"`
	Allocations []PostedAllocation `json:"allocations"`
}

type ServiceParams struct {
	References ReferenceReader
	Poster     TransactionPoster
	Ledger     ledger.Service
	Tx         TxRunner
	Outbox     EventEmitter
	Metrics    Metrics
	Priority   enums.SettlementPriority
	Logger     *logger.Logger
}

type Service struct {
	refs     ReferenceReader
	poster   TransactionPoster
	ledger   ledger.Service
	tx       TxRunner
	outbox   EventEmitter
	metrics  Metrics
	priority enums.SettlementPriority
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.References == nil {
		return nil, fmt.Errorf("reference reader required")
	}
	if params.Poster == nil {
		return nil, fmt.Errorf("transaction poster required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	priority := params.Priority
	if priority == "" {
		priority = enums.SettlementBuyFirst
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("invalid settlement priority %q", priority)
	}
	return &Service{
		refs:     params.References,
		poster:   params.Poster,
		ledger:   params.Ledger,
		tx:       params.Tx,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		priority: priority,
		logg:     params.Logger,
	}, nil
}

// Preview reduces amount over the entity's current orders without posting.
func (s *Service) Preview(ctx context.Context, actor permissions.Actor, entityID uuid.UUID, amount float64) (Plan, error) {
	if err := actor.Require(enums.ResourceSettlements, enums.ActionRead); err != nil {
		return Plan{}, err
	}
	if err := validateAmount(amount); err != nil {
		return Plan{}, err
	}
	entity, err := s.refs.Entity(ctx, actor.OrganizationID, entityID)
	if err != nil {
		return Plan{}, err
	}
	return Reduce(amount, entity.Orders, s.priority), nil
}

// Execute posts one transaction per allocation. Allocations already recorded
// under the same idempotency key are reported as replayed and not posted again.
func (s *Service) Execute(ctx context.Context, actor permissions.Actor, input SettleInput) (*Result, error) {
	if err := actor.Require(enums.ResourceSettlements, enums.ActionCreate); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID
	runKey := RunID(orgID, input.IdempotencyKey).String()

	snap, err := s.refs.Load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Account(input.AccountID); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	entity, err := s.refs.Entity(ctx, orgID, input.EntityID)
	if err != nil {
		return nil, err
	}

	posted, err := s.ledger.Posted(ctx, runKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settlement progress")
	}
	result := &Result{
		EntityID:    input.EntityID,
		AccountID:   input.AccountID,
		Requested:   input.Amount,
		Allocations: []PostedAllocation{},
	}
	pending := make([]refdata.EntityOrder, 0, len(entity.Orders))
	orderTypes := make(map[uuid.UUID]enums.OrderType, len(entity.Orders))
	for _, o := range entity.Orders {
		orderTypes[o.ID] = o.Type
		if _, done := posted[o.ID]; !done {
			pending = append(pending, o)
		}
	}
	entries := make([]models.SettlementEntry, 0, len(posted))
	for _, entry := range posted {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	for _, entry := range entries {
		if entry.EntityID != input.EntityID || entry.AccountID != input.AccountID {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used for a different settlement")
		}
		amount := entry.Amount.InexactFloat64()
		result.Allocations = append(result.Allocations, PostedAllocation{
			Allocation: Allocation{
				OrderID:   entry.OrderID,
				OrderType: orderTypes[entry.OrderID],
				Amount:    amount,
			},
			TransactionID: entry.TransactionID,
			Replayed:      true,
		})
		result.Allocated = money.Round2(money.SumSafe(result.Allocated, amount))
	}

	budget := money.ClampNonNegative(money.SumSafe(input.Amount, -result.Allocated))
	plan := Reduce(budget, pending, s.priority)
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = defaultDescription
	}

	for _, alloc := range plan.Allocations {
		txn, err := s.poster.CreateOrderTransaction(ctx, orgID, alloc.OrderID, allocationKey(runKey, alloc.OrderID), backend.OrderTransactionRequest{
			Amount:    alloc.Amount,
			AccountID: input.AccountID,
			Details: backend.TransactionDetails{
				Type:        paymentTransactionType,
				Description: description,
			},
		})
		if err != nil {
			s.incAllocation("failed")
			return nil, err
		}
		if _, err := s.ledger.Record(ctx, ledger.RecordEntryInput{
			IdempotencyKey: runKey,
			OrganizationID: orgID,
			EntityID:       input.EntityID,
			AccountID:      input.AccountID,
			OrderID:        alloc.OrderID,
			ActorUserID:    actor.UserID,
			Amount:         alloc.Amount,
			TransactionID:  txn.ID,
		}); err != nil {
			s.incAllocation("unrecorded")
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record settlement allocation")
		}
		s.incAllocation("posted")
		result.Allocations = append(result.Allocations, PostedAllocation{Allocation: alloc, TransactionID: txn.ID})
		result.Allocated = money.Round2(money.SumSafe(result.Allocated, alloc.Amount))
	}
	result.Unallocated = money.Round2(money.ClampNonNegative(money.SumSafe(input.Amount, -result.Allocated)))

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.EmitIfNotExists(ctx, tx, s.recordedEvent(actor, input, result))
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue settlement event")
	}

	if err := s.refs.Invalidate(ctx, orgID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settlement.cache_invalidate_failed")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"entity_id":   input.EntityID.String(),
			"account_id":  input.AccountID.String(),
			"requested":   input.Amount,
			"allocated":   result.Allocated,
			"allocations": len(result.Allocations),
		})
		s.logg.Info(logCtx, "settlement.executed")
	}
	return result, nil
}

func (s *Service) recordedEvent(actor permissions.Actor, input SettleInput, result *Result) outbox.DomainEvent {
	allocations := make([]payloads.SettlementAllocation, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		allocations = append(allocations, payloads.SettlementAllocation{
			OrderID:       a.OrderID,
			Amount:        a.Amount,
			TransactionID: a.TransactionID,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSettlementRecorded,
		AggregateType: enums.AggregateSettlementRun,
		AggregateID:   RunID(actor.OrganizationID, input.IdempotencyKey),
		Actor: &outbox.ActorRef{
			UserID:         actor.UserID,
			OrganizationID: actor.OrganizationID,
			Role:           actor.Role.String(),
		},
		Data: payloads.SettlementRecordedEvent{
			IdempotencyKey: input.IdempotencyKey,
			OrganizationID: actor.OrganizationID,
			EntityID:       input.EntityID,
			AccountID:      input.AccountID,
			Requested:      result.Requested,
			Allocated:      result.Allocated,
			Unallocated:    result.Unallocated,
			Allocations:    allocations,
		},
	}
}

func (s *Service) incAllocation(result string) {
	if s.metrics != nil {
		s.metrics.IncSettlementAllocation(result)
	}
}

// RunID is the stable id of a settlement run within an organization. Its
// string form keys the local ledger and prefixes backend idempotency keys.
func RunID(orgID uuid.UUID, idempotencyKey string) uuid.UUID {
	return uuid.NewSHA1(runNamespace, []byte(orgID.String()+":"+idempotencyKey))
}

func allocationKey(idempotencyKey string, orderID uuid.UUID) string {
	return idempotencyKey + ":" + orderID.String()
}

func validateAmount(amount float64) error {
	if !money.IsFinite(amount) || amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive number")
	}
	return nil
}

func validateInput(input SettleInput) error {
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity_id is required")
	}
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account_id is required")
	}
	return validateAmount(input.Amount)
}

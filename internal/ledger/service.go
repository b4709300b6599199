package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Service records and queries posted settlement allocations.
type Service interface {
	Record(ctx context.Context, input RecordEntryInput) (*models.SettlementEntry, error)
	Posted(ctx context.Context, idempotencyKey string) (map[uuid.UUID]models.SettlementEntry, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures one allocation the backend accepted.
type RecordEntryInput struct {
	IdempotencyKey string    `json:"idempotency_key"`
	OrganizationID uuid.UUID `json:"organization_id"`
	EntityID       uuid.UUID `json:"entity_id"`
	AccountID      uuid.UUID `json:"account_id"`
	OrderID        uuid.UUID `json:"order_id"`
	ActorUserID    uuid.UUID `json:"actor_user_id"`
	Amount         float64   `json:"amount"`
	TransactionID  uuid.UUID `json:"transaction_id"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.SettlementEntry, error) {
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("organization id is required")
	}
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	entry := &models.SettlementEntry{
		IdempotencyKey: input.IdempotencyKey,
		OrganizationID: input.OrganizationID,
		EntityID:       input.EntityID,
		AccountID:      input.AccountID,
		OrderID:        input.OrderID,
		ActorUserID:    input.ActorUserID,
		Amount:         decimal.NewFromFloat(input.Amount),
		TransactionID:  input.TransactionID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("allocation for order %s already recorded: %w", input.OrderID, err)
		}
		return nil, err
	}
	return entry, nil
}

// Posted indexes a run's recorded entries by order id.
func (s *service) Posted(ctx context.Context, idempotencyKey string) (map[uuid.UUID]models.SettlementEntry, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	entries, err := s.repo.ListByRun(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.SettlementEntry, len(entries))
	for _, e := range entries {
		out[e.OrderID] = e
	}
	return out, nil
}

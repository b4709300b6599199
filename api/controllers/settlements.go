package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type SettlementService interface {
	Preview(ctx context.Context, actor permissions.Actor, entityID uuid.UUID, amount float64) (settlement.Plan, error)
	Execute(ctx context.Context, actor permissions.Actor, input settlement.SettleInput) (*settlement.Result, error)
}

type settleRequest struct {
	AccountID   uuid.UUID `json:"account_id" validate:"required"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	Description string    `json:"description" validate:"max=500"`
}

// SettlementPreview runs the reducer without posting anything.
func SettlementPreview(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
			return
		}
		entityID, err := validators.ParseUUIDParam(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := validators.ParseQueryAmount(r, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Preview(r.Context(), actor, entityID, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

// SettlementExecute posts one ledger transaction per allocation. The
// Idempotency-Key header names the run so retries skip posted allocations.
func SettlementExecute(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
			return
		}
		entityID, err := validators.ParseUUIDParam(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var body settleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), actor, settlement.SettleInput{
			EntityID:       entityID,
			AccountID:      body.AccountID,
			Amount:         body.Amount,
			Description:    validators.SanitizeString(body.Description, 500),
			IdempotencyKey: key,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

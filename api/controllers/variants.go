package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type SnapshotLoader interface {
	Load(ctx context.Context, orgID uuid.UUID) (*refdata.Snapshot, error)
}

type variantEstimate struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	Sufficient  bool      `json:"sufficient"`
	Shortfall   int       `json:"shortfall"`
	stock.Quote
}

// VariantEstimate prices a quantity against the variant's FIFO lots.
func VariantEstimate(refs SnapshotLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing"))
			return
		}
		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := refs.Load(r.Context(), actor.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, product, found := snap.Variant(variantID)
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found"))
			return
		}

		quote := stock.QuoteFor(variant.Lots, quantity)
		responses.WriteSuccess(w, variantEstimate{
			VariantID:   variant.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			VariantName: variant.Name,
			Sufficient:  quote.Sufficient(),
			Shortfall:   quote.Allocation.Shortfall,
			Quote:       quote,
		})
	}
}

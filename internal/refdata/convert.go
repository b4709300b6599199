package refdata

import (
	"fmt"

	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

func organizationFromBackend(in backend.Organization) Organization {
	return Organization{
		ID:                    in.ID,
		Name:                  in.Name,
		DefaultEntityID:       in.DefaultEntityID,
		CashRegisterAccountID: in.CashRegisterAccountID,
		VendorChargeAccountID: in.VendorChargeAccountID,
	}
}

func productsFromBackend(in []backend.Product) ([]Product, error) {
	out := make([]Product, 0, len(in))
	for _, p := range in {
		product := Product{ID: p.ID, Name: p.Name, Variants: make([]Variant, 0, len(p.Variants))}
		for _, v := range p.Variants {
			lots := make([]stock.Lot, 0, len(v.StockLots))
			for _, l := range v.StockLots {
				lots = append(lots, stock.Lot{
					ID:                l.ID,
					UnitCost:          l.UnitCost,
					OriginalQuantity:  l.OriginalQuantity,
					AvailableQuantity: l.AvailableQuantity,
					ReceivedAt:        l.CreatedAt,
				})
			}
			normalized, err := stock.Normalize(lots)
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", v.ID, err)
			}
			product.Variants = append(product.Variants, Variant{
				ID:        v.ID,
				ProductID: p.ID,
				Name:      v.Name,
				SellPrice: v.SellPrice,
				BuyPrice:  v.BuyPrice,
				Lots:      normalized,
			})
		}
		out = append(out, product)
	}
	return out, nil
}

func accountsFromBackend(in []backend.Account) ([]Account, error) {
	out := make([]Account, 0, len(in))
	for _, a := range in {
		kind, err := enums.ParseAccountType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		out = append(out, Account{ID: a.ID, Name: a.Name, Type: kind, Balance: a.Balance})
	}
	return out, nil
}

func entityFromBackend(in backend.Entity) (Entity, error) {
	orders := make([]EntityOrder, 0, len(in.Orders))
	for _, o := range in.Orders {
		kind, err := enums.ParseOrderType(o.Type)
		if err != nil {
			return Entity{}, fmt.Errorf("entity %s order %s: %w", in.ID, o.ID, err)
		}
		orders = append(orders, EntityOrder{
			ID:          o.ID,
			Type:        kind,
			TotalAmount: o.TotalAmount,
			PaidTillNow: o.PaidTillNow,
			CreatedAt:   o.CreatedAt,
		})
	}
	return Entity{ID: in.ID, Name: in.Name, IsDefault: in.IsDefault, Orders: orders}, nil
}

func entitiesFromBackend(in []backend.Entity) ([]Entity, error) {
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		entity, err := entityFromBackend(e)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

package orderform

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

type catalog struct {
	snap      *refdata.Snapshot
	orgID     uuid.UUID
	productID uuid.UUID
	riceID    uuid.UUID
	tillID    uuid.UUID
	bankID    uuid.UUID
	feesID    uuid.UUID
	walkInID  uuid.UUID
	supplier  uuid.UUID
}

// newCatalog builds a shop with one variant holding 5 units at 10 and 10
// units at 12, a cash register, a bank account with 100 and a walk-in entity.
func newCatalog() catalog {
	c := catalog{
		orgID:     uuid.New(),
		productID: uuid.New(),
		riceID:    uuid.New(),
		tillID:    uuid.New(),
		bankID:    uuid.New(),
		feesID:    uuid.New(),
		walkInID:  uuid.New(),
		supplier:  uuid.New(),
	}
	received := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.snap = refdata.NewSnapshot(
		refdata.Organization{
			ID:                    c.orgID,
			Name:                  "Corner Shop",
			DefaultEntityID:       &c.walkInID,
			CashRegisterAccountID: &c.tillID,
		},
		[]refdata.Product{{
			ID:   c.productID,
			Name: "Rice",
			Variants: []refdata.Variant{{
				ID:        c.riceID,
				ProductID: c.productID,
				Name:      "5kg",
				SellPrice: 15,
				BuyPrice:  11,
				Lots: []stock.Lot{
					{ID: uuid.New(), UnitCost: 10, OriginalQuantity: 5, AvailableQuantity: 5, ReceivedAt: received},
					{ID: uuid.New(), UnitCost: 12, OriginalQuantity: 10, AvailableQuantity: 10, ReceivedAt: received.Add(24 * time.Hour)},
				},
			}},
		}},
		[]refdata.Account{
			{ID: c.tillID, Name: "Till", Type: enums.AccountTypeCash, Balance: 250},
			{ID: c.bankID, Name: "Main bank", Type: enums.AccountTypeBank, Balance: 100},
			{ID: c.feesID, Name: "Fees", Type: enums.AccountTypeBank, Balance: 1000},
		},
		[]refdata.Entity{
			{ID: c.walkInID, Name: "Walk-in", IsDefault: true},
			{ID: c.supplier, Name: "Harbor Supplies"},
		},
		received,
	)
	return c
}

func (c catalog) form(orderType enums.OrderType) *Form {
	return NewForm(NewCart(uuid.New(), c.orgID, orderType), c.snap)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

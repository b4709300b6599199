package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

func snapshotWithStock(available ...int) (*refdata.Snapshot, []uuid.UUID) {
	variants := make([]refdata.Variant, 0, len(available))
	ids := make([]uuid.UUID, 0, len(available))
	for i, qty := range available {
		id := uuid.New()
		ids = append(ids, id)
		variants = append(variants, refdata.Variant{
			ID:   id,
			Name: fmt.Sprintf("V%d", i+1),
			Lots: []stock.Lot{{ID: uuid.New(), UnitCost: 10, OriginalQuantity: qty, AvailableQuantity: qty}},
		})
	}
	product := refdata.Product{ID: uuid.New(), Name: "Rice", Variants: variants}
	return refdata.NewSnapshot(refdata.Organization{}, []refdata.Product{product}, nil, nil, time.Time{}), ids
}

func TestStockReportsSingleShortLine(t *testing.T) {
	snap, ids := snapshotWithStock(8)

	res := Stock(enums.OrderTypeSell, []LineQuantity{{VariantID: ids[0], Quantity: 12}}, snap)
	require.False(t, res.IsValid)
	require.Equal(t, []string{"Insufficient stock for Rice (V1): requested 12, available 8"}, res.Errors)
	require.Equal(t, 0, res.Issues[0].Index)
}

func TestStockIgnoresBuyOrders(t *testing.T) {
	snap, ids := snapshotWithStock(1)

	res := Stock(enums.OrderTypeBuy, []LineQuantity{{VariantID: ids[0], Quantity: 500}}, snap)
	require.True(t, res.IsValid)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Errors)
}

func TestStockSkipsUnknownVariants(t *testing.T) {
	snap, _ := snapshotWithStock(1)

	res := Stock(enums.OrderTypeSell, []LineQuantity{{VariantID: uuid.New(), Quantity: 50}}, snap)
	require.True(t, res.IsValid)
}

func TestStockInvalidIffSomeLineExceedsAvailable(t *testing.T) {
	snap, ids := snapshotWithStock(5, 3)
	cases := [][2]int{{5, 3}, {6, 3}, {5, 4}, {0, 0}, {1, 1}, {7, 9}}
	for _, qty := range cases {
		lines := []LineQuantity{
			{VariantID: ids[0], Quantity: qty[0]},
			{VariantID: ids[1], Quantity: qty[1]},
		}
		want := qty[0] > 5 || qty[1] > 3

		res := Stock(enums.OrderTypeSell, lines, snap)
		require.Equal(t, !want, res.IsValid, "quantities %v", qty)
	}
}

func TestStockChecksLinesIndependently(t *testing.T) {
	snap, ids := snapshotWithStock(8)
	lines := []LineQuantity{
		{VariantID: ids[0], Quantity: 5},
		{VariantID: ids[0], Quantity: 5},
	}

	res := Stock(enums.OrderTypeSell, lines, snap)
	require.True(t, res.IsValid, "each line is compared against the full available stock")
}

type accountTable map[uuid.UUID]refdata.Account

func (a accountTable) Account(id uuid.UUID) (refdata.Account, bool) {
	acc, ok := a[id]
	return acc, ok
}

func TestBalanceReportsOverdrawnPayments(t *testing.T) {
	till := uuid.New()
	bank := uuid.New()
	accounts := accountTable{
		till: {ID: till, Name: "Till", Balance: 250},
		bank: {ID: bank, Name: "Bank", Balance: 1000},
	}

	res := Balance(enums.OrderTypeBuy, []PaymentAmount{
		{AccountID: bank, Amount: 900},
		{AccountID: till, Amount: 300},
	}, accounts)
	require.False(t, res.IsValid)
	require.Equal(t, []string{"Insufficient balance in Till: requested 300.00, available 250.00"}, res.Errors)
	require.Equal(t, 1, res.Issues[0].Index)
}

func TestBalanceInvalidIffSomePaymentExceedsBalance(t *testing.T) {
	id := uuid.New()
	accounts := accountTable{id: {ID: id, Name: "Bank", Balance: 100}}
	for _, amount := range []float64{0, 99.99, 100, 100.01, 250} {
		res := Balance(enums.OrderTypeBuy, []PaymentAmount{{AccountID: id, Amount: amount}}, accounts)
		require.Equal(t, amount <= 100, res.IsValid, "amount %v", amount)
	}
}

func TestBalanceIgnoresSellAndMiscOrders(t *testing.T) {
	id := uuid.New()
	accounts := accountTable{id: {ID: id, Name: "Till", Balance: 0}}
	payments := []PaymentAmount{{AccountID: id, Amount: 1000}}

	require.True(t, Balance(enums.OrderTypeSell, payments, accounts).IsValid)
	require.True(t, Balance(enums.OrderTypeMisc, payments, accounts).IsValid)
}

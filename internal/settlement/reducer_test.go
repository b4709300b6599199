package settlement

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func order(kind enums.OrderType, total, paid float64, age int) refdata.EntityOrder {
	return refdata.EntityOrder{
		ID:          uuid.New(),
		Type:        kind,
		TotalAmount: total,
		PaidTillNow: paid,
		CreatedAt:   base.Add(time.Duration(age) * time.Hour),
	}
}

func TestReduceSpreadsOldestFirst(t *testing.T) {
	a := order(enums.OrderTypeBuy, 300, 0, 0)
	b := order(enums.OrderTypeBuy, 500, 0, 1)

	plan := Reduce(700, []refdata.EntityOrder{b, a}, enums.SettlementBuyFirst)

	require.Len(t, plan.Allocations, 2)
	require.Equal(t, a.ID, plan.Allocations[0].OrderID)
	require.Equal(t, 300.0, plan.Allocations[0].Amount)
	require.Equal(t, b.ID, plan.Allocations[1].OrderID)
	require.Equal(t, 400.0, plan.Allocations[1].Amount)
	require.Equal(t, 700.0, plan.Allocated)
	require.Zero(t, plan.Unallocated)
}

func TestReduceBuyOrdersBeforeSales(t *testing.T) {
	sale := order(enums.OrderTypeSell, 200, 0, 0)
	purchase := order(enums.OrderTypeBuy, 200, 0, 5)

	plan := Reduce(250, []refdata.EntityOrder{sale, purchase}, enums.SettlementBuyFirst)
	require.Equal(t, purchase.ID, plan.Allocations[0].OrderID)
	require.Equal(t, 200.0, plan.Allocations[0].Amount)
	require.Equal(t, sale.ID, plan.Allocations[1].OrderID)
	require.Equal(t, 50.0, plan.Allocations[1].Amount)

	plan = Reduce(250, []refdata.EntityOrder{purchase, sale}, enums.SettlementOldestFirst)
	require.Equal(t, sale.ID, plan.Allocations[0].OrderID)
}

func TestReduceSkipsSettledOrdersAndReportsLeftover(t *testing.T) {
	settled := order(enums.OrderTypeBuy, 100, 100, 0)
	overpaid := order(enums.OrderTypeBuy, 100, 150, 1)
	open := order(enums.OrderTypeSell, 120, 20, 2)

	plan := Reduce(500, []refdata.EntityOrder{settled, overpaid, open}, enums.SettlementBuyFirst)
	require.Len(t, plan.Allocations, 1)
	require.Equal(t, open.ID, plan.Allocations[0].OrderID)
	require.Equal(t, 100.0, plan.Allocations[0].Amount)
	require.Equal(t, 100.0, plan.Allocations[0].Remaining)
	require.Equal(t, 400.0, plan.Unallocated)
}

func TestReduceAllocatesWholeCents(t *testing.T) {
	nearlyPaid := order(enums.OrderTypeBuy, 10.3, 10.2, 0)
	open := order(enums.OrderTypeBuy, 5, 0, 1)
	dust := order(enums.OrderTypeBuy, 7.001, 7, 2)

	plan := Reduce(1.1, []refdata.EntityOrder{dust, open, nearlyPaid}, enums.SettlementBuyFirst)

	require.Len(t, plan.Allocations, 2, "a balance under half a cent is settled")
	require.Equal(t, nearlyPaid.ID, plan.Allocations[0].OrderID)
	require.Equal(t, 0.1, plan.Allocations[0].Amount)
	require.Equal(t, 0.1, plan.Allocations[0].Remaining)
	require.Equal(t, open.ID, plan.Allocations[1].OrderID)
	require.Equal(t, 1.0, plan.Allocations[1].Amount)
	require.Equal(t, 1.1, plan.Allocated)
	require.Zero(t, plan.Unallocated)

	plan = Reduce(0.3, []refdata.EntityOrder{order(enums.OrderTypeSell, 0.1, 0, 0), order(enums.OrderTypeSell, 0.1, 0, 1)}, enums.SettlementBuyFirst)
	require.Equal(t, 0.2, plan.Allocated)
	require.Equal(t, 0.1, plan.Unallocated)

	plan = Reduce(0.004, []refdata.EntityOrder{open}, enums.SettlementBuyFirst)
	require.Empty(t, plan.Allocations, "a payment under half a cent allocates nothing")
}

func TestReduceInvalidAmount(t *testing.T) {
	orders := []refdata.EntityOrder{order(enums.OrderTypeBuy, 100, 0, 0)}
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		plan := Reduce(amount, orders, enums.SettlementBuyFirst)
		if len(plan.Allocations) != 0 || plan.Allocated != 0 {
			t.Fatalf("amount %v: expected empty plan, got %+v", amount, plan)
		}
	}
}

func TestReduceConservesAmount(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		orders := make([]refdata.EntityOrder, rng.IntN(6))
		outstanding := 0.0
		for j := range orders {
			kind := enums.OrderTypeSell
			if rng.IntN(2) == 0 {
				kind = enums.OrderTypeBuy
			}
			total := float64(rng.IntN(1000))
			paid := float64(rng.IntN(1200))
			orders[j] = order(kind, total, paid, rng.IntN(48))
			outstanding += orders[j].Remaining()
		}
		amount := float64(rng.IntN(3000) + 1)

		plan := Reduce(amount, orders, enums.SettlementBuyFirst)

		sum := 0.0
		remaining := map[uuid.UUID]float64{}
		for _, o := range orders {
			remaining[o.ID] = o.Remaining()
		}
		for _, a := range plan.Allocations {
			if a.Amount <= 0 || a.Amount > remaining[a.OrderID] {
				t.Fatalf("allocation %+v exceeds remaining %v", a, remaining[a.OrderID])
			}
			sum += a.Amount
		}
		if sum > amount {
			t.Fatalf("allocated %v more than requested %v", sum, amount)
		}
		if outstanding >= amount && sum != amount {
			t.Fatalf("expected full allocation of %v, got %v", amount, sum)
		}
		if outstanding < amount && sum != outstanding {
			t.Fatalf("expected %v allocated when orders run out, got %v", outstanding, sum)
		}
	}
}

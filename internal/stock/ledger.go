// Package stock implements the read-only FIFO view over a variant's stock lots.
// Lots are consumed oldest first. Nothing here mutates a lot; the ledger
// backend owns the authoritative decrement when an order is persisted.
package stock

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// Lot is a batch of inventory received at a single unit cost.
type Lot struct {
	ID                uuid.UUID `json:"id"`
	UnitCost          float64   `json:"unit_cost"`
	OriginalQuantity  int       `json:"original_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	ReceivedAt        time.Time `json:"received_at"`
}

// Validate checks 0 <= available <= original.
func (l Lot) Validate() error {
	if l.OriginalQuantity < 0 {
		return fmt.Errorf("lot %s: negative original quantity %d", l.ID, l.OriginalQuantity)
	}
	if l.AvailableQuantity < 0 || l.AvailableQuantity > l.OriginalQuantity {
		return fmt.Errorf("lot %s: available quantity %d outside [0, %d]", l.ID, l.AvailableQuantity, l.OriginalQuantity)
	}
	return nil
}

// Take is the quantity a would-be allocation draws from one lot.
type Take struct {
	LotID    uuid.UUID `json:"lot_id"`
	Quantity int       `json:"quantity"`
	UnitCost float64   `json:"unit_cost"`
}

// Allocation is the oldest-first breakdown for a requested quantity.
type Allocation struct {
	Takes     []Take `json:"takes"`
	Allocated int    `json:"allocated"`
	// Shortfall is the part of the request no lot could cover.
	Shortfall int `json:"shortfall"`
}

// Normalize validates lots and orders them oldest first by receipt time. When
// any lot lacks a receipt time the backend order is kept as is.
func Normalize(lots []Lot) ([]Lot, error) {
	out := make([]Lot, len(lots))
	copy(out, lots)
	for _, lot := range out {
		if err := lot.Validate(); err != nil {
			return nil, err
		}
	}
	for _, lot := range out {
		if lot.ReceivedAt.IsZero() {
			return out, nil
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

// Available sums the available quantity across lots.
func Available(lots []Lot) int {
	total := 0
	for _, lot := range lots {
		if lot.AvailableQuantity > 0 {
			total += lot.AvailableQuantity
		}
	}
	return total
}

// Allocate walks lots oldest first and takes from each until quantity is
// covered. A request beyond the available stock yields a partial allocation
// with the excess reported as Shortfall.
func Allocate(lots []Lot, quantity int) Allocation {
	alloc := Allocation{Takes: []Take{}}
	if quantity <= 0 {
		return alloc
	}
	remaining := quantity
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.AvailableQuantity <= 0 {
			continue
		}
		take := min(lot.AvailableQuantity, remaining)
		alloc.Takes = append(alloc.Takes, Take{LotID: lot.ID, Quantity: take, UnitCost: lot.UnitCost})
		alloc.Allocated += take
		remaining -= take
	}
	alloc.Shortfall = remaining
	return alloc
}

// TotalCost is the FIFO cost of the allocated units.
func (a Allocation) TotalCost() float64 {
	var total float64
	for _, take := range a.Takes {
		total = money.SumSafe(total, float64(take.Quantity)*take.UnitCost)
	}
	return total
}

// WeightedPrice is the FIFO average unit cost of quantity units, rounded to
// four places. It returns 0 when quantity is not positive or exceeds the
// available stock.
func WeightedPrice(lots []Lot, quantity int) float64 {
	if quantity <= 0 || quantity > Available(lots) {
		return 0
	}
	alloc := Allocate(lots, quantity)
	return money.Round4(alloc.TotalCost() / float64(quantity))
}

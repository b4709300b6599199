package stock

// Quote merges the weighted price and the shortfall into one answer so callers
// can tell an unpriced request from a genuinely free one.
type Quote struct {
	Requested  int        `json:"requested"`
	Available  int        `json:"available"`
	UnitPrice  float64    `json:"unit_price"`
	Allocation Allocation `json:"allocation"`
}

// Sufficient reports whether the lots fully cover the request.
func (q Quote) Sufficient() bool {
	return q.Requested > 0 && q.Allocation.Shortfall == 0
}

// QuoteFor prices quantity against lots. UnitPrice is only set when the
// request is covered in full, matching WeightedPrice.
func QuoteFor(lots []Lot, quantity int) Quote {
	return Quote{
		Requested:  quantity,
		Available:  Available(lots),
		UnitPrice:  WeightedPrice(lots, quantity),
		Allocation: Allocate(lots, quantity),
	}
}

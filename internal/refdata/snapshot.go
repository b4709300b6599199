// Package refdata loads the reference data an order form validates against:
// products with their FIFO lots, accounts with balances, and entities with
// their outstanding orders.
package refdata

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

type Organization struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	DefaultEntityID       *uuid.UUID `json:"default_entity_id,omitempty"`
	CashRegisterAccountID *uuid.UUID `json:"cash_register_account_id,omitempty"`
	VendorChargeAccountID *uuid.UUID `json:"vendor_charge_account_id,omitempty"`
}

type Variant struct {
	ID        uuid.UUID   `json:"id"`
	ProductID uuid.UUID   `json:"product_id"`
	Name      string      `json:"name"`
	SellPrice float64     `json:"sell_price"`
	BuyPrice  float64     `json:"buy_price"`
	Lots      []stock.Lot `json:"lots"`
}

// AvailableStock sums the variant's available lot quantities.
func (v Variant) AvailableStock() int {
	return stock.Available(v.Lots)
}

// DefaultRate is the rate a new line gets for the given order direction.
func (v Variant) DefaultRate(orderType enums.OrderType) float64 {
	if orderType == enums.OrderTypeBuy {
		return v.BuyPrice
	}
	return v.SellPrice
}

type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Variants []Variant `json:"variants"`
}

type Account struct {
	ID      uuid.UUID         `json:"id"`
	Name    string            `json:"name"`
	Type    enums.AccountType `json:"type"`
	Balance float64           `json:"balance"`
}

// EntityOrder is one order on a counterparty's ledger.
type EntityOrder struct {
	ID          uuid.UUID       `json:"id"`
	Type        enums.OrderType `json:"type"`
	TotalAmount float64         `json:"total_amount"`
	PaidTillNow float64         `json:"paid_till_now"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Remaining is totalAmount - paidTillNow, floored at zero.
func (o EntityOrder) Remaining() float64 {
	return money.ClampNonNegative(o.TotalAmount - o.PaidTillNow)
}

type Entity struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	IsDefault bool          `json:"is_default"`
	Orders    []EntityOrder `json:"orders"`
}

// Outstanding sums what is still owed across the entity's orders.
func (e Entity) Outstanding() float64 {
	values := make([]float64, 0, len(e.Orders))
	for _, o := range e.Orders {
		values = append(values, o.Remaining())
	}
	return money.SumSafe(values...)
}

type variantRef struct {
	product int
	variant int
}

// Snapshot is an organization's reference data at FetchedAt. It may be stale;
// the backend re-checks stock and balances on submission.
type Snapshot struct {
	Organization Organization `json:"organization"`
	Products     []Product    `json:"products"`
	Accounts     []Account    `json:"accounts"`
	Entities     []Entity     `json:"entities"`
	FetchedAt    time.Time    `json:"fetched_at"`

	variants map[uuid.UUID]variantRef
	products map[uuid.UUID]int
	accounts map[uuid.UUID]int
	entities map[uuid.UUID]int
}

func NewSnapshot(org Organization, products []Product, accounts []Account, entities []Entity, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		Organization: org,
		Products:     products,
		Accounts:     accounts,
		Entities:     entities,
		FetchedAt:    fetchedAt,
	}
	s.reindex()
	return s
}

func (s *Snapshot) reindex() {
	s.variants = make(map[uuid.UUID]variantRef)
	s.products = make(map[uuid.UUID]int, len(s.Products))
	for pi, p := range s.Products {
		s.products[p.ID] = pi
		for vi, v := range p.Variants {
			s.variants[v.ID] = variantRef{product: pi, variant: vi}
		}
	}
	s.accounts = make(map[uuid.UUID]int, len(s.Accounts))
	for i, a := range s.Accounts {
		s.accounts[a.ID] = i
	}
	s.entities = make(map[uuid.UUID]int, len(s.Entities))
	for i, e := range s.Entities {
		s.entities[e.ID] = i
	}
}

// Variant resolves a variant together with its owning product.
func (s *Snapshot) Variant(id uuid.UUID) (Variant, Product, bool) {
	if s == nil {
		return Variant{}, Product{}, false
	}
	ref, ok := s.variants[id]
	if !ok {
		return Variant{}, Product{}, false
	}
	p := s.Products[ref.product]
	return p.Variants[ref.variant], p, true
}

func (s *Snapshot) Product(id uuid.UUID) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.products[id]
	if !ok {
		return Product{}, false
	}
	return s.Products[i], true
}

func (s *Snapshot) Account(id uuid.UUID) (Account, bool) {
	if s == nil {
		return Account{}, false
	}
	i, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return s.Accounts[i], true
}

func (s *Snapshot) Entity(id uuid.UUID) (Entity, bool) {
	if s == nil {
		return Entity{}, false
	}
	i, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	return s.Entities[i], true
}

// IsDefaultEntity reports whether id is the organization's walk-in counterparty.
func (s *Snapshot) IsDefaultEntity(id uuid.UUID) bool {
	if s == nil || id == uuid.Nil {
		return false
	}
	if s.Organization.DefaultEntityID != nil && *s.Organization.DefaultEntityID == id {
		return true
	}
	e, ok := s.Entity(id)
	return ok && e.IsDefault
}

// DefaultEntity returns the walk-in counterparty if one is configured.
func (s *Snapshot) DefaultEntity() (Entity, bool) {
	if s == nil {
		return Entity{}, false
	}
	if id := s.Organization.DefaultEntityID; id != nil {
		if e, ok := s.Entity(*id); ok {
			return e, true
		}
	}
	for _, e := range s.Entities {
		if e.IsDefault {
			return e, true
		}
	}
	return Entity{}, false
}

// CashRegister returns the account point-of-sale payments land in.
func (s *Snapshot) CashRegister() (Account, bool) {
	if s == nil || s.Organization.CashRegisterAccountID == nil {
		return Account{}, false
	}
	return s.Account(*s.Organization.CashRegisterAccountID)
}

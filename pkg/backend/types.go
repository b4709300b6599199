package backend

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/types"
)

// Wire shapes of the ledger REST API. Field names follow the backend's camelCase JSON.

type Organization struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	DefaultEntityID       *uuid.UUID `json:"defaultEntityId,omitempty"`
	CashRegisterAccountID *uuid.UUID `json:"cashRegisterAccountId,omitempty"`
	VendorChargeAccountID *uuid.UUID `json:"vendorChargeAccountId,omitempty"`
}

type StockLot struct {
	ID                uuid.UUID `json:"id"`
	UnitCost          float64   `json:"unitCost"`
	OriginalQuantity  int       `json:"originalQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Variant struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	SellPrice float64    `json:"sellPrice"`
	BuyPrice  float64    `json:"buyPrice"`
	StockLots []StockLot `json:"stockLots"`
}

type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Variants []Variant `json:"variants"`
}

type Account struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Balance float64   `json:"balance"`
}

type EntityOrder struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	TotalAmount float64   `json:"totalAmount"`
	PaidTillNow float64   `json:"paidTillNow"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Entity struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	IsDefault bool          `json:"isDefault"`
	Orders    []EntityOrder `json:"orders"`
}

// CreateOrderRequest is the order submission payload.
type CreateOrderRequest struct {
	Type        string         `json:"type"`
	EntityID    *uuid.UUID     `json:"entityId,omitempty"`
	Description string         `json:"description,omitempty"`
	Products    []OrderProduct `json:"products"`
	Payments    []OrderPayment `json:"payments"`
	Discount    *float64       `json:"discount,omitempty"`
	Tax         *float64       `json:"tax,omitempty"`
	Charges     []OrderCharge  `json:"charges,omitempty"`
	OrderDate   string         `json:"orderDate,omitempty"`
}

type OrderProduct struct {
	VariantID   uuid.UUID `json:"variantId"`
	Quantity    int       `json:"quantity"`
	Rate        float64   `json:"rate"`
	Description string    `json:"description,omitempty"`
}

type OrderPayment struct {
	AccountID uuid.UUID             `json:"accountId"`
	Amount    float64               `json:"amount"`
	Details   *types.PaymentDetails `json:"details,omitempty"`
}

// OrderCharge is a counterparty charge; business charges never travel on the order.
type OrderCharge struct {
	Name             string  `json:"name"`
	Amount           float64 `json:"amount"`
	IsPaidByBusiness bool    `json:"isPaidByBusiness"`
}

type CreatedOrder struct {
	ID uuid.UUID `json:"id"`
}

type TransactionDetails struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// OrderTransactionRequest posts a payment against one order.
type OrderTransactionRequest struct {
	Amount    float64            `json:"amount"`
	AccountID uuid.UUID          `json:"accountId"`
	Details   TransactionDetails `json:"details"`
}

// AccountTransactionRequest posts a movement directly on an account.
type AccountTransactionRequest struct {
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	OrderID     uuid.UUID `json:"orderId"`
}

type Transaction struct {
	ID uuid.UUID `json:"id"`
}

package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is one persisted OAuth token pair. Pairs are appended, never updated;
// only the most recent one is ever read.
type Token struct {
	ID           int64     `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
}

// Order is the persisted order aggregate header. The ID is the marketplace
// order id and is never generated locally.
type Order struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	DateCreated    *time.Time      `json:"date_created"`
	BuyerName      string          `json:"buyer_name"`
	BillingName    string          `json:"billing_name"`
	BillingIDType  string          `json:"billing_id_type"`
	BillingIDNum   string          `json:"billing_id_number"`
	BillingAddress string          `json:"billing_address"`
	BillingEmail   string          `json:"billing_email"`
	SellerFeeTotal decimal.Decimal `json:"seller_fee_total"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	City           string          `json:"city"`
	Department     string          `json:"department"`

	// Populated on reads, written through SaveItems/SaveTaxes
	Items []OrderItem `json:"items,omitempty"`
	Taxes []OrderTax  `json:"taxes,omitempty"`
}

// OrderItem is one line item of an order aggregate
type OrderItem struct {
	OrderID        int64           `json:"order_id"`
	SKUSeller      string          `json:"sku_seller"`
	SKUMarketplace string          `json:"sku_marketplace"`
	Title          string          `json:"title"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// OrderTax is a computed tax line, not a marketplace concept
type OrderTax struct {
	OrderID int64           `json:"order_id"`
	Name    string          `json:"name"`
	Value   decimal.Decimal `json:"value"`
}

// DepartmentCity is one row of the department/city reference list
type DepartmentCity struct {
	Department string `json:"department"`
	City       string `json:"city"`
}

// SyncRun records one sync run and its summary counts
type SyncRun struct {
	ID              int64      `json:"id"`
	LookbackDays    int        `json:"lookback_days"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	OrdersFound     int        `json:"orders_found"`
	OrdersProcessed int        `json:"orders_processed"`
	OrdersDefaulted int        `json:"orders_defaulted"`
	OrdersErrored   int        `json:"orders_errored"`
	Status          string     `json:"status"`
}

// ListOrdersQuery holds filters for listing stored orders
type ListOrdersQuery struct {
	Limit  int
	Offset int
	Search string // matches buyer name, billing name or status
}

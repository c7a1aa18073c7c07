package sync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// MarketplaceAPI is the slice of the marketplace client the pipeline uses.
// *meli.Client satisfies it; tests substitute stubs.
type MarketplaceAPI interface {
	Me(ctx context.Context) (*meli.User, error)
	SearchOrders(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error)
	GetOrder(ctx context.Context, orderID int64) (*meli.OrderDetail, error)
	GetItem(ctx context.Context, itemID string) (*meli.Item, error)
	GetBillingInfo(ctx context.Context, orderID int64) (*meli.BillingInfo, error)
	GetShipment(ctx context.Context, shipmentID int64) (*meli.Shipment, error)
}

// Sentinel values written when a sub-resource is unavailable
const (
	SentinelUnavailable = "unavailable"
	SentinelUnknown     = "unknown"
	SentinelNoSellerSKU = "not set by seller"
	SentinelNoTitle     = "untitled"
	SentinelNoAddress   = "no address"
)

// Field identifies one enrichment sub-resource of an order
type Field string

const (
	FieldDetail   Field = "detail"
	FieldItems    Field = "items"
	FieldBilling  Field = "billing"
	FieldShipment Field = "shipment"
)

// Outcome is the result of one enrichment sub-fetch: either the real
// sub-resource was merged, or documented defaults were substituted.
type Outcome struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func fetched() Outcome {
	return Outcome{OK: true}
}

func defaulted(reason string) Outcome {
	return Outcome{OK: false, Reason: reason}
}

// OrderReport describes how one order fared during a run
type OrderReport struct {
	OrderID    int64             `json:"order_id"`
	Persisted  bool              `json:"persisted"`
	Enrichment map[Field]Outcome `json:"enrichment"`
}

// FullyEnriched reports whether every sub-resource was fetched for real
func (r OrderReport) FullyEnriched() bool {
	for _, outcome := range r.Enrichment {
		if !outcome.OK {
			return false
		}
	}
	return true
}

// Options holds parameters for one sync run
type Options struct {
	LookbackDays int
	Concurrency  int
}

// Result summarizes one sync run. OrdersDefaulted counts orders persisted
// with at least one sentinel default; they are also included in
// OrdersProcessed.
type Result struct {
	OrdersFound     int           `json:"orders_found"`
	OrdersProcessed int           `json:"orders_processed"`
	OrdersDefaulted int           `json:"orders_defaulted"`
	OrdersPruned    int64         `json:"orders_pruned"`
	Errors          []error       `json:"-"`
	Reports         []OrderReport `json:"reports"`
}

// ErrorMessages renders the per-order errors for callers that serialize the
// result
func (r *Result) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// EnrichedOrder is an order aggregate assembled from the summary and its
// sub-resources, ready to persist
type EnrichedOrder struct {
	Header      storage.Order
	Items       []storage.OrderItem
	TotalAmount decimal.Decimal
	Report      OrderReport
}

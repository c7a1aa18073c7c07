package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ordersync/meli-sync-backend/internal/domain/money"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// Enricher fans out per-order sub-fetches (detail, catalog items, billing
// identity, shipment) and merges them into one aggregate. Sub-fetch failures
// never fail the order: each one is logged and replaced with documented
// defaults, recorded as a typed outcome on the order report.
type Enricher struct {
	api    MarketplaceAPI
	loc    *time.Location
	logger *slog.Logger
}

// NewEnricher creates an enricher. loc is the fixed local timezone order
// dates are normalized to.
func NewEnricher(api MarketplaceAPI, loc *time.Location, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{api: api, loc: loc, logger: logger}
}

// Enrich builds the full aggregate for one order summary. Sub-fetches run in
// sequence; only the fan-out across orders is concurrent.
func (e *Enricher) Enrich(ctx context.Context, summary meli.OrderSummary) *EnrichedOrder {
	enriched := &EnrichedOrder{
		Header: storage.Order{
			ID:        summary.ID,
			Status:    summary.Status,
			BuyerName: buyerName(summary.Buyer),
		},
		TotalAmount: decimal.NewFromFloat(summary.TotalAmount),
		Report: OrderReport{
			OrderID:    summary.ID,
			Enrichment: make(map[Field]Outcome),
		},
	}

	e.enrichDetail(ctx, summary, enriched)
	e.enrichItems(ctx, summary, enriched)
	e.enrichBilling(ctx, summary, enriched)
	e.enrichShipment(ctx, summary, enriched)

	return enriched
}

// enrichDetail fetches the authoritative creation date and the marketplace
// fee total. On failure the summary's own date is used and the fee stays 0.
func (e *Enricher) enrichDetail(ctx context.Context, summary meli.OrderSummary, enriched *EnrichedOrder) {
	detail, err := e.api.GetOrder(ctx, summary.ID)
	if err != nil {
		e.logger.Warn("Failed to fetch order detail", "order_id", summary.ID, "error", err)
		enriched.Header.DateCreated = e.normalizeDate(summary.DateCreated)
		enriched.Header.SellerFeeTotal = decimal.Zero
		enriched.Report.Enrichment[FieldDetail] = defaulted(err.Error())
		return
	}

	enriched.Header.DateCreated = e.normalizeDate(detail.DateCreated)
	enriched.Header.SellerFeeTotal = decimal.NewFromFloat(detail.SellerFeeTotal())
	enriched.Report.Enrichment[FieldDetail] = fetched()
}

// enrichItems resolves the seller SKU and the marketplace custom field for
// every line item. Each catalog lookup is independent and may default on its
// own without affecting the others.
func (e *Enricher) enrichItems(ctx context.Context, summary meli.OrderSummary, enriched *EnrichedOrder) {
	failures := 0

	for _, line := range summary.OrderItems {
		item := storage.OrderItem{
			OrderID:        summary.ID,
			SKUSeller:      SentinelNoSellerSKU,
			SKUMarketplace: SentinelNoSellerSKU,
			Title:          line.Item.Title,
			Quantity:       line.Quantity,
			UnitPrice:      money.ParsePrice(string(line.UnitPrice)),
		}
		if item.Title == "" {
			item.Title = SentinelNoTitle
		}

		if line.Item.ID != "" {
			catalog, err := e.api.GetItem(ctx, line.Item.ID)
			if err != nil {
				e.logger.Warn("Failed to fetch catalog item", "order_id", summary.ID, "item_id", line.Item.ID, "error", err)
				failures++
			} else {
				if sku := catalog.SellerSKU(); sku != "" {
					item.SKUSeller = sku
				}
				if catalog.SellerCustomField != "" {
					item.SKUMarketplace = catalog.SellerCustomField
				}
			}
		}

		enriched.Items = append(enriched.Items, item)
	}

	if failures > 0 {
		enriched.Report.Enrichment[FieldItems] = defaulted(fmt.Sprintf("%d of %d item lookups failed", failures, len(summary.OrderItems)))
	} else {
		enriched.Report.Enrichment[FieldItems] = fetched()
	}
}

// enrichBilling fetches the buyer billing identity. The sub-resource is
// atomic: unless identification and address are both present the whole
// record is replaced by sentinels.
func (e *Enricher) enrichBilling(ctx context.Context, summary meli.OrderSummary, enriched *EnrichedOrder) {
	header := &enriched.Header
	header.BillingName = SentinelUnavailable
	header.BillingIDType = SentinelUnavailable
	header.BillingIDNum = SentinelUnavailable
	header.BillingAddress = SentinelUnavailable
	header.BillingEmail = SentinelUnavailable

	info, err := e.api.GetBillingInfo(ctx, summary.ID)
	if err != nil {
		e.logger.Warn("Failed to fetch billing info", "order_id", summary.ID, "error", err)
		enriched.Report.Enrichment[FieldBilling] = defaulted(err.Error())
		return
	}
	if !info.WellFormed() {
		enriched.Report.Enrichment[FieldBilling] = defaulted("billing info missing identification or address")
		return
	}

	name := strings.TrimSpace(strings.Join(nonEmpty(info.Name, info.LastName), " "))
	if name == "" {
		name = SentinelUnknown
	}
	address := strings.TrimSpace(strings.Join(nonEmpty(
		info.Address.StreetName,
		info.Address.StreetNumber,
		info.Address.CityName,
	), " "))
	if address == "" {
		address = SentinelNoAddress
	}

	header.BillingName = name
	header.BillingIDType = orSentinel(info.Identification.Type, SentinelUnknown)
	header.BillingIDNum = orSentinel(info.Identification.Number, SentinelUnknown)
	header.BillingAddress = address
	header.BillingEmail = orSentinel(info.BestEmail(), SentinelUnavailable)
	enriched.Report.Enrichment[FieldBilling] = fetched()
}

// enrichShipment fetches the shipment cost and destination. Orders without a
// shipment reference, and failed fetches, default to zero cost and empty
// locations.
func (e *Enricher) enrichShipment(ctx context.Context, summary meli.OrderSummary, enriched *EnrichedOrder) {
	enriched.Header.ShippingCost = decimal.Zero

	if summary.Shipping == nil || summary.Shipping.ID == 0 {
		enriched.Report.Enrichment[FieldShipment] = defaulted("no shipment reference")
		return
	}

	shipment, err := e.api.GetShipment(ctx, summary.Shipping.ID)
	if err != nil {
		e.logger.Warn("Failed to fetch shipment", "order_id", summary.ID, "shipment_id", summary.Shipping.ID, "error", err)
		enriched.Report.Enrichment[FieldShipment] = defaulted(err.Error())
		return
	}

	enriched.Header.ShippingCost = decimal.NewFromFloat(shipment.BaseCost)
	enriched.Header.City = shipment.ReceiverAddress.City.Name
	enriched.Header.Department = shipment.ReceiverAddress.State.Name
	enriched.Report.Enrichment[FieldShipment] = fetched()
}

// normalizeDate parses a marketplace timestamp, converts it to the fixed
// local timezone and truncates it to minute precision. Unparsable or absent
// timestamps yield nil.
func (e *Enricher) normalizeDate(raw string) *time.Time {
	t, err := meli.ParseDate(raw)
	if err != nil {
		return nil
	}

	local := t.In(e.loc)
	truncated := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, e.loc)
	return &truncated
}

// buyerName picks the best available buyer display name
func buyerName(buyer *meli.Buyer) string {
	if buyer == nil {
		return SentinelUnknown
	}
	for _, candidate := range []string{buyer.Nickname, buyer.FirstName, buyer.Name} {
		if candidate != "" {
			return candidate
		}
	}
	return SentinelUnknown
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orSentinel(value, sentinel string) string {
	if value == "" {
		return sentinel
	}
	return value
}

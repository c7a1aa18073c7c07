package meli

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// PageSize is the order search page size. The search stops on an empty or
// short page.
const PageSize = 50

// Me returns the authenticated seller identity. This is the identity check
// the orchestrator performs before a sync run.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchOrders lists all order summaries for the seller created inside
// [from, to], walking offset-based pages until a page comes back empty or
// short. Any page failure propagates; the caller does not retry.
func (c *Client) SearchOrders(ctx context.Context, sellerID int64, from, to time.Time) ([]OrderSummary, error) {
	var all []OrderSummary
	offset := 0

	for {
		query := url.Values{}
		query.Set("seller", strconv.FormatInt(sellerID, 10))
		query.Set("date_created.from", from.Format(time.RFC3339))
		query.Set("date_created.to", to.Format(time.RFC3339))
		query.Set("sort", "date_desc")
		query.Set("limit", strconv.Itoa(PageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page searchResponse
		if err := c.getJSON(ctx, "/orders/search", query, nil, &page); err != nil {
			return nil, fmt.Errorf("order search at offset %d failed: %w", offset, err)
		}

		if len(page.Results) == 0 {
			break
		}
		all = append(all, page.Results...)
		if len(page.Results) < PageSize {
			break
		}
		offset += PageSize
	}

	return all, nil
}

// GetOrder fetches the full order detail, the authoritative source for the
// creation date and the marketplace fees.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	var detail OrderDetail
	path := "/orders/" + strconv.FormatInt(orderID, 10)
	if err := c.getJSON(ctx, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetItem fetches a catalog item, used to resolve the seller SKU and the
// marketplace custom field for an order line.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "/items/"+url.PathEscape(itemID), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetBillingInfo fetches the buyer billing identity for an order. The
// endpoint is versioned through a request header.
func (c *Client) GetBillingInfo(ctx context.Context, orderID int64) (*BillingInfo, error) {
	var resp billingInfoResponse
	path := "/orders/" + strconv.FormatInt(orderID, 10) + "/billing_info"
	headers := map[string]string{"x-version": "2"}
	if err := c.getJSON(ctx, path, nil, headers, &resp); err != nil {
		return nil, err
	}
	return resp.Buyer.BillingInfo, nil
}

// GetShipment fetches the shipment referenced by an order
func (c *Client) GetShipment(ctx context.Context, shipmentID int64) (*Shipment, error) {
	var shipment Shipment
	path := "/shipments/" + strconv.FormatInt(shipmentID, 10)
	if err := c.getJSON(ctx, path, nil, nil, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// Country fetches a classified locations country with its states. The
// endpoint is public.
func (c *Client) Country(ctx context.Context, code string) (*Country, error) {
	var country Country
	path := "/classified_locations/countries/" + url.PathEscape(code)
	if err := c.getPublicJSON(ctx, path, &country); err != nil {
		return nil, err
	}
	return &country, nil
}

// State fetches a classified locations state with its cities
func (c *Client) State(ctx context.Context, stateID string) (*State, error) {
	var state State
	path := "/classified_locations/states/" + url.PathEscape(stateID)
	if err := c.getPublicJSON(ctx, path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

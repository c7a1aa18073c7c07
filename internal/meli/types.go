package meli

import (
	"bytes"
	"encoding/json"
	"time"
)

// Token is an OAuth token pair returned by the marketplace
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id"`
}

// User is the authenticated seller identity
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// Buyer is the buyer block of an order summary
type Buyer struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	Name      string `json:"name"`
}

// ShippingRef references the shipment attached to an order
type ShippingRef struct {
	ID int64 `json:"id"`
}

// PriceText holds a marketplace-supplied price that may arrive as a JSON
// number, a formatted string ("$ 12,345.00") or null. The raw text is kept
// and normalized later.
type PriceText string

// UnmarshalJSON accepts number, string and null price representations
func (p *PriceText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(s)
		return nil
	}
	*p = PriceText(data)
	return nil
}

// SummaryItemRef is the nested item block of an order summary line
type SummaryItemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SummaryItem is one line item as listed by the order search
type SummaryItem struct {
	Item      SummaryItemRef `json:"item"`
	Quantity  int            `json:"quantity"`
	UnitPrice PriceText      `json:"unit_price"`
}

// OrderSummary is one order as returned by the paginated search. It is an
// immutable snapshot; the per-order detail is authoritative for dates.
type OrderSummary struct {
	ID          int64         `json:"id"`
	Status      string        `json:"status"`
	DateCreated string        `json:"date_created"`
	TotalAmount float64       `json:"total_amount"`
	Buyer       *Buyer        `json:"buyer"`
	Shipping    *ShippingRef  `json:"shipping"`
	OrderItems  []SummaryItem `json:"order_items"`
}

// Payment is one payment of an order detail
type Payment struct {
	ID             int64   `json:"id"`
	MarketplaceFee float64 `json:"marketplace_fee"`
}

// OrderDetail is the full order resource
type OrderDetail struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	DateCreated string    `json:"date_created"`
	Payments    []Payment `json:"payments"`
}

// SellerFeeTotal sums the marketplace fee across all payments, 0 when the
// payments array is absent
func (d *OrderDetail) SellerFeeTotal() float64 {
	var total float64
	for _, p := range d.Payments {
		total += p.MarketplaceFee
	}
	return total
}

// Attribute is one catalog item attribute
type Attribute struct {
	ID        string `json:"id"`
	ValueName string `json:"value_name"`
}

// Item is a catalog item resource
type Item struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	SellerCustomField string      `json:"seller_custom_field"`
	Attributes        []Attribute `json:"attributes"`
}

// sellerSKUAttribute is the named attribute carrying the seller's own SKU
const sellerSKUAttribute = "SELLER_SKU"

// SellerSKU returns the value of the SELLER_SKU attribute, or "" when the
// seller never set one
func (i *Item) SellerSKU() string {
	for _, attr := range i.Attributes {
		if attr.ID == sellerSKUAttribute {
			return attr.ValueName
		}
	}
	return ""
}

// Identification is the buyer's identity document on a billing info resource
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// BillingAddress is the address block of a billing info resource
type BillingAddress struct {
	StreetName   string `json:"street_name"`
	StreetNumber string `json:"street_number"`
	CityName     string `json:"city_name"`
}

// BillingInfo is the buyer billing identity of an order. It is well-formed
// only when both identification and address are present.
type BillingInfo struct {
	Name           string          `json:"name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Identification *Identification `json:"identification"`
	Address        *BillingAddress `json:"address"`
	Attributes     struct {
		Email string `json:"email"`
	} `json:"attributes"`
}

// WellFormed reports whether the whole billing identity can be trusted
func (b *BillingInfo) WellFormed() bool {
	return b != nil && b.Identification != nil && b.Address != nil
}

// BestEmail returns the direct email or the attributes fallback
func (b *BillingInfo) BestEmail() string {
	if b.Email != "" {
		return b.Email
	}
	return b.Attributes.Email
}

// billingInfoResponse is the wire shape of the billing info endpoint
type billingInfoResponse struct {
	Buyer struct {
		BillingInfo *BillingInfo `json:"billing_info"`
	} `json:"buyer"`
}

// LocationName is a named city or state on a shipment receiver address
type LocationName struct {
	Name string `json:"name"`
}

// ReceiverAddress is the destination of a shipment
type ReceiverAddress struct {
	City  LocationName `json:"city"`
	State LocationName `json:"state"`
}

// Shipment is the shipment resource referenced by an order
type Shipment struct {
	ID              int64           `json:"id"`
	BaseCost        float64         `json:"base_cost"`
	ReceiverAddress ReceiverAddress `json:"receiver_address"`
}

// StateRef is one state of a country in the classified locations hierarchy
type StateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CityRef is one city of a state in the classified locations hierarchy
type CityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Country is a classified locations country with its states
type Country struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	States []StateRef `json:"states"`
}

// State is a classified locations state with its cities
type State struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Cities []CityRef `json:"cities"`
}

// searchResponse is the wire shape of the order search endpoint
type searchResponse struct {
	Results []OrderSummary `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
}

// ParseDate parses a marketplace ISO-8601 timestamp (with optional
// fractional seconds and offset)
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

package dto

// MessageResponse is a simple informational response.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// AuthURLResponse carries the marketplace authorization URL.
type AuthURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// AuthCallbackResponse reports the outcome of the OAuth code exchange.
type AuthCallbackResponse struct {
	Message  string `json:"message"`
	SellerID int64  `json:"seller_id"`
}

// OrderItemResponse is one line item of an order aggregate.
type OrderItemResponse struct {
	SKUSeller      string `json:"sku_seller"`
	SKUMarketplace string `json:"sku_marketplace"`
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
}

// OrderTaxResponse is one computed tax line.
type OrderTaxResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderResponse is one stored order aggregate.
type OrderResponse struct {
	ID             int64               `json:"id"`
	Status         string              `json:"status"`
	DateCreated    *string             `json:"date_created"`
	BuyerName      string              `json:"buyer_name"`
	BillingName    string              `json:"billing_name"`
	BillingIDType  string              `json:"billing_id_type"`
	BillingIDNum   string              `json:"billing_id_number"`
	BillingAddress string              `json:"billing_address"`
	BillingEmail   string              `json:"billing_email"`
	SellerFeeTotal string              `json:"seller_fee_total"`
	ShippingCost   string              `json:"shipping_cost"`
	City           string              `json:"city"`
	Department     string              `json:"department"`
	Items          []OrderItemResponse `json:"items"`
	Taxes          []OrderTaxResponse  `json:"taxes"`
}

// OrderListResponse is the paginated order listing.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// SyncRunResponse is one historical sync run.
type SyncRunResponse struct {
	ID              int64   `json:"id"`
	LookbackDays    int     `json:"lookback_days"`
	StartedAt       string  `json:"started_at"`
	CompletedAt     *string `json:"completed_at"`
	OrdersFound     int     `json:"orders_found"`
	OrdersProcessed int     `json:"orders_processed"`
	OrdersDefaulted int     `json:"orders_defaulted"`
	OrdersErrored   int     `json:"orders_errored"`
	Status          string  `json:"status"`
}

// SyncRunListResponse is the sync run history.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// LocationsImportResponse reports the department/city reference import.
type LocationsImportResponse struct {
	Country     string `json:"country"`
	Departments int    `json:"departments"`
	Cities      int    `json:"cities"`
}

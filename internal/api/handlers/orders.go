package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

// defaultPageSize bounds the order listing page.
const defaultPageSize = 50

// OrdersHandler serves stored order aggregates.
type OrdersHandler struct {
	*Base
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(repo storage.Repository) *OrdersHandler {
	return &OrdersHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/orders - returns a paginated list of stored orders.
// Query parameters: page (1-based), page_size, q (text filter).
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	page := ParseIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := ParseIntParam(r, "page_size", defaultPageSize)
	if pageSize < 1 || pageSize > 200 {
		pageSize = defaultPageSize
	}

	query := storage.ListOrdersQuery{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
		Search: r.URL.Query().Get("q"),
	}

	orders, total, err := h.repo.ListOrders(query)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, 0, len(orders)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for i := range orders {
		response.Orders = append(response.Orders, toOrderResponse(&orders[i]))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/orders/{id} - returns one order aggregate with its
// items and tax lines.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("order id must be numeric"))
		return
	}

	order, err := h.repo.GetOrder(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("order"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// toOrderResponse converts a stored order to an API response.
func toOrderResponse(order *storage.Order) dto.OrderResponse {
	response := dto.OrderResponse{
		ID:             order.ID,
		Status:         order.Status,
		BuyerName:      order.BuyerName,
		BillingName:    order.BillingName,
		BillingIDType:  order.BillingIDType,
		BillingIDNum:   order.BillingIDNum,
		BillingAddress: order.BillingAddress,
		BillingEmail:   order.BillingEmail,
		SellerFeeTotal: order.SellerFeeTotal.String(),
		ShippingCost:   order.ShippingCost.String(),
		City:           order.City,
		Department:     order.Department,
		Items:          make([]dto.OrderItemResponse, 0, len(order.Items)),
		Taxes:          make([]dto.OrderTaxResponse, 0, len(order.Taxes)),
	}

	if order.DateCreated != nil {
		formatted := order.DateCreated.Format(time.RFC3339)
		response.DateCreated = &formatted
	}

	for _, item := range order.Items {
		response.Items = append(response.Items, dto.OrderItemResponse{
			SKUSeller:      item.SKUSeller,
			SKUMarketplace: item.SKUMarketplace,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.String(),
		})
	}

	for _, tax := range order.Taxes {
		response.Taxes = append(response.Taxes, dto.OrderTaxResponse{
			Name:  tax.Name,
			Value: tax.Value.String(),
		})
	}

	return response
}

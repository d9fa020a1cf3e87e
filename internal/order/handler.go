package order

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/storefleet/storefleet/internal/database"
	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/metrics"
	"github.com/storefleet/storefleet/internal/user"
)

// identityFromContext matches auth.GetUserFromContext without importing the
// auth package.
type identityFromContext func(ctx context.Context) (*user.User, bool)

// Handler contains HTTP handlers for orders.
type Handler struct {
	repo      *Repository
	identity  identityFromContext
	collector *metrics.Collector
	logger    *logging.Logger
}

func NewHandler(repo *Repository, identity identityFromContext, collector *metrics.Collector, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, identity: identity, collector: collector, logger: logger}
}

// PaymentInfoRequest carries the payment gateway's transaction reference.
type PaymentInfoRequest struct {
	ID string `json:"id"`
}

// CreateOrderRequest is the checkout payload. Price fields are pointers so
// an absent field is distinguishable from an explicit zero.
type CreateOrderRequest struct {
	ShippingInfo  *database.ShippingInfo `json:"shipping_info"`
	OrderedItems  []database.OrderedItem `json:"ordered_items"`
	PaymentInfo   *PaymentInfoRequest    `json:"payment_info"`
	ItemsPrice    *float64               `json:"items_price"`
	TaxPrice      *float64               `json:"tax_price"`
	ShippingPrice *float64               `json:"shipping_price"`
	TotalPrice    *float64               `json:"total_price"`
}

// OrderResponse wraps a placed order.
type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// OrderListResponse wraps a user's order history.
type OrderListResponse struct {
	Success bool    `json:"success"`
	Count   int     `json:"count"`
	Orders  []Order `json:"orders"`
}

// Create places a new order
// @Summary      Place order
// @Description  Create an order from a confirmed payment. The claimed total must equal items + tax + shipping.
// @Tags         order
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        request body CreateOrderRequest true "Order details"
// @Success      201 {object} OrderResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/storefleet/order/new [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	buyer, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ShippingInfo == nil || len(req.OrderedItems) == 0 ||
		req.PaymentInfo == nil || req.PaymentInfo.ID == "" ||
		req.ItemsPrice == nil || req.TaxPrice == nil ||
		req.ShippingPrice == nil || req.TotalPrice == nil {
		httputil.RespondError(w,
			"missing required fields for order creation, please provide all order details",
			http.StatusBadRequest)
		return
	}

	if req.ShippingInfo.Country == "" {
		req.ShippingInfo.Country = defaultCountry
	}

	if !TotalMatches(*req.ItemsPrice, *req.TaxPrice, *req.ShippingPrice, *req.TotalPrice) {
		logger.Warn("order total mismatch",
			"user_id", buyer.ID,
			"claimed_total", *req.TotalPrice,
			"computed_total", *req.ItemsPrice+*req.TaxPrice+*req.ShippingPrice,
		)
		httputil.RespondError(w,
			"total price mismatch, please verify cart calculation before placing the order",
			http.StatusBadRequest)
		return
	}

	placed, err := h.repo.Create(r.Context(), CreateInput{
		UserID:        buyer.ID,
		ShippingInfo:  *req.ShippingInfo,
		OrderedItems:  req.OrderedItems,
		PaymentID:     req.PaymentInfo.ID,
		PaidAt:        time.Now(),
		ItemsPrice:    *req.ItemsPrice,
		TaxPrice:      *req.TaxPrice,
		ShippingPrice: *req.ShippingPrice,
		TotalPrice:    *req.TotalPrice,
	})
	if err != nil {
		logger.Error("failed to place order", "user_id", buyer.ID, "error", err.Error())
		httputil.RespondError(w, "failed to place order", http.StatusInternalServerError)
		return
	}

	logger.Info("order placed", "order_id", placed.ID, "user_id", buyer.ID, "total", placed.TotalPrice)
	h.collector.RecordOrderPlaced()
	httputil.RespondJSON(w, OrderResponse{
		Success: true,
		Message: "order placed successfully",
		Order:   *placed,
	}, http.StatusCreated)
}

// History returns the caller's orders
// @Summary      Own order history
// @Tags         order
// @Produce      json
// @Security     SessionAuth
// @Success      200 {object} OrderListResponse
// @Router       /api/storefleet/order/my [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	buyer, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	orders, err := h.repo.ListByUser(r.Context(), buyer.ID)
	if err != nil {
		logger.Error("failed to list orders", "user_id", buyer.ID, "error", err.Error())
		httputil.RespondError(w, "error fetching orders", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, OrderListResponse{Success: true, Count: len(orders), Orders: orders}, http.StatusOK)
}

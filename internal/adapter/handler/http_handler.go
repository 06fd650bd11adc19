package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/core/domain"
	"github.com/rl1809/commerce-hub/internal/core/service"
	"github.com/rl1809/commerce-hub/internal/port"
)

type HTTPHandler struct {
	orderService   *service.OrderService
	productService *service.ProductService
	cache          port.CacheRepository
	logger         *zap.Logger
}

// NewHTTPHandler builds the HTTP surface. cache may be nil, which disables
// the X-Request-ID idempotency guard on checkout.
func NewHTTPHandler(orderService *service.OrderService, productService *service.ProductService, cache port.CacheRepository, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		orderService:   orderService,
		productService: productService,
		cache:          cache,
		logger:         logger,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Post("/api/orders/checkout", h.Checkout)
	r.Get("/api/orders/{id}", h.GetOrder)
	r.Put("/api/orders/{id}", h.UpdateOrder)
	r.Patch("/api/products/{id}/stock", h.AdjustStock)
	return r
}

type checkoutItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	CustomerID string                `json:"customerId"`
	Items      []checkoutItemRequest `json:"items"`
}

type updateOrderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type updateOrderRequest struct {
	CustomerID  string                   `json:"customerId"`
	Items       []updateOrderItemRequest `json:"items"`
	Status      string                   `json:"status"`
	TotalAmount decimal.Decimal          `json:"totalAmount"`
}

type stockAdjustmentRequest struct {
	Adjustment int `json:"adjustment"`
}

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customerId"`
	Items       []orderItemResponse `json:"items"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func orderToResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Items:       items,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid request body"}})
		return
	}

	if errs := validateCheckout(req); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	if requestID := r.Header.Get("X-Request-ID"); requestID != "" && h.cache != nil {
		ok, err := h.cache.SetIdempotency(r.Context(), requestID)
		if err != nil {
			h.logger.Error("idempotency check failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "duplicate request"})
			return
		}
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderService.Checkout(r.Context(), service.CheckoutInput{
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderToResponse(order))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(order))
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid request body"}})
		return
	}

	if errs := validateUpdateOrder(req); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	items := make([]service.UpdateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.UpdateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	order, err := h.orderService.UpdateOrder(r.Context(), chi.URLParam(r, "id"), service.UpdateOrderInput{
		CustomerID:  req.CustomerID,
		Items:       items,
		Status:      req.Status,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderToResponse(order))
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid request body"}})
		return
	}

	if req.Adjustment == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"adjustment must not be zero"}})
		return
	}

	product, err := h.productService.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Adjustment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"productId": product.ID,
		"name":      product.Name,
		"stock":     product.Stock,
		"updatedAt": product.UpdatedAt,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validateCheckout(req checkoutRequest) []string {
	var errs []string
	if req.CustomerID == "" {
		errs = append(errs, "customerId is required")
	}
	if len(req.Items) == 0 {
		errs = append(errs, "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			errs = append(errs, "productId is required")
		}
		if item.Quantity <= 0 {
			errs = append(errs, "quantity must be greater than zero")
		}
	}
	return errs
}

func validateUpdateOrder(req updateOrderRequest) []string {
	var errs []string
	if req.CustomerID == "" {
		errs = append(errs, "customerId is required")
	}
	if len(req.Items) == 0 {
		errs = append(errs, "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			errs = append(errs, "productId is required")
		}
		if item.Quantity <= 0 {
			errs = append(errs, "quantity must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, "unitPrice cannot be negative")
		}
	}
	if req.Status == "" {
		errs = append(errs, "status is required")
	}
	if req.TotalAmount.IsNegative() {
		errs = append(errs, "totalAmount cannot be negative")
	}
	return errs
}

// writeServiceError maps service outcomes onto HTTP status codes.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		productNotFound *service.ProductNotFoundError
		orderNotFound   *service.OrderNotFoundError
		insufficient    *service.InsufficientStockError
		negativeStock   *service.NegativeStockError
		invalidStatus   *service.InvalidStatusError
	)

	switch {
	case errors.As(err, &productNotFound), errors.As(err, &orderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &insufficient), errors.As(err, &negativeStock), errors.Is(err, service.ErrOrderShipped):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &invalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

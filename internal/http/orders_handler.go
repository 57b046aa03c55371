package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/orders"
	"github.com/fjod/go_cart/marketplace-client/internal/receipt"
	"github.com/go-chi/chi/v5"
)

type OrderHistory interface {
	FetchOrders(ctx context.Context) ([]domain.Order, error)
	History() []domain.Order
	Status() (orders.Status, error)
	Find(id domain.ID) (domain.Order, bool)
}

type OrdersHandler struct {
	history  OrderHistory
	receipts *receipt.Renderer
	timeout  time.Duration
	log      *slog.Logger
}

func NewOrdersHandler(history OrderHistory, receipts *receipt.Renderer, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		history:  history,
		receipts: receipts,
		timeout:  timeout,
		log:      log,
	}
}

type OrdersResponseDTO struct {
	Orders []domain.Order `json:"orders"`
	Status orders.Status  `json:"status"`
	Error  string         `json:"error,omitempty"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

// POST /api/v1/orders/sync
func (h *OrdersHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.history.FetchOrders(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.snapshot())
}

// GET /api/v1/orders/{order_id}/receipt
func (h *OrdersHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, ok := h.history.Find(domain.ID(orderID))
	if !ok {
		handleError(w, domain.ErrOrderNotFound)
		return
	}

	var customer *receipt.Customer
	if user, ok := userFromContext(r.Context()); ok {
		customer = &receipt.Customer{Name: user.Name, Phone: order.PhoneNumber}
	}

	var buf bytes.Buffer
	if err := h.receipts.Render(&buf, order, customer); err != nil {
		h.log.Error("failed to render receipt", "order_id", order.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "receipt_failed", "could not generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.receipts.Filename(order.ID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("failed to write receipt", "order_id", order.ID, "error", err)
	}
}

func (h *OrdersHandler) snapshot() OrdersResponseDTO {
	status, err := h.history.Status()
	resp := OrdersResponseDTO{
		Orders: h.history.History(),
		Status: status,
	}
	if resp.Orders == nil {
		resp.Orders = []domain.Order{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

package http

import (
	"net/http"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartLedger is the local cart the handler mutates.
type CartLedger interface {
	AddItem(p domain.Product) domain.Cart
	RemoveItem(id domain.ID) domain.Cart
	IncreaseQuantity(id domain.ID) domain.Cart
	DecreaseQuantity(id domain.ID) domain.Cart
	Clear() domain.Cart
	Snapshot() domain.Cart
}

type CartHandler struct {
	ledger      CartLedger
	maxBodySize int64
}

func NewCartHandler(ledger CartLedger, maxBodySize int64) *CartHandler {
	return &CartHandler{
		ledger:      ledger,
		maxBodySize: maxBodySize,
	}
}

type AddItemRequestDTO struct {
	ID    domain.ID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeBody(w, r, h.maxBodySize, &req) {
		return
	}

	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id is required")
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	cart := h.ledger.AddItem(domain.Product{
		ID:    req.ID,
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
	})
	respondJSON(w, http.StatusCreated, cart)
}

// POST /api/v1/cart/items/{product_id}/increase
func (h *CartHandler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.ledger.IncreaseQuantity(id))
}

// POST /api/v1/cart/items/{product_id}/decrease
func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.ledger.DecreaseQuantity(id))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.ledger.RemoveItem(id))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Clear())
}

func productID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	id := chi.URLParam(r, "product_id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return "", false
	}
	return domain.ID(id), true
}

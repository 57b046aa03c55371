package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/wishlist"
	"github.com/go-chi/chi/v5"
)

type WishlistLedger interface {
	FetchAll(ctx context.Context) error
	Add(ctx context.Context, animalID domain.ID) (domain.WishlistItem, error)
	Remove(ctx context.Context, itemID string) error
	Toggle(ctx context.Context, animalID domain.ID) (bool, error)
	Items() []domain.WishlistItem
	Status() (wishlist.Status, error)
}

type WishlistHandler struct {
	ledger      WishlistLedger
	timeout     time.Duration
	maxBodySize int64
}

func NewWishlistHandler(ledger WishlistLedger, timeout time.Duration, maxBodySize int64) *WishlistHandler {
	return &WishlistHandler{
		ledger:      ledger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type WishlistRequestDTO struct {
	AnimalID domain.ID `json:"animal_id"`
}

type WishlistResponseDTO struct {
	Items  []domain.WishlistItem `json:"items"`
	Count  int                   `json:"count"`
	Status wishlist.Status       `json:"status"`
	Error  string                `json:"error,omitempty"`
}

type ToggleResponseDTO struct {
	AnimalID   domain.ID `json:"animal_id"`
	Wishlisted bool      `json:"wishlisted"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

// POST /api/v1/wishlist/sync
func (h *WishlistHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.ledger.FetchAll(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.snapshot())
}

// POST /api/v1/wishlist
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	animalID, ok := h.animalID(w, r)
	if !ok {
		return
	}

	item, err := h.ledger.Add(ctx, animalID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// POST /api/v1/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	animalID, ok := h.animalID(w, r)
	if !ok {
		return
	}

	wishlisted, err := h.ledger.Toggle(ctx, animalID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponseDTO{AnimalID: animalID, Wishlisted: wishlisted})
}

// DELETE /api/v1/wishlist/{item_id}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "missing_item_id", "item_id is required")
		return
	}

	if err := h.ledger.Remove(ctx, itemID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandler) animalID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	var req WishlistRequestDTO
	if !decodeBody(w, r, h.maxBodySize, &req) {
		return "", false
	}
	if req.AnimalID == "" {
		respondError(w, http.StatusBadRequest, "missing_animal_id", "animal_id is required")
		return "", false
	}
	return req.AnimalID, true
}

func (h *WishlistHandler) snapshot() WishlistResponseDTO {
	items := h.ledger.Items()
	status, err := h.ledger.Status()
	resp := WishlistResponseDTO{
		Items:  items,
		Count:  len(items),
		Status: status,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

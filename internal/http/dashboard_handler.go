package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/remote"
	"golang.org/x/sync/errgroup"
)

// DashboardSource serves the aggregates shown on the buyer dashboard.
type DashboardSource interface {
	OrderStats(ctx context.Context) (remote.OrderStats, error)
	WishlistCount(ctx context.Context) (int, error)
}

type DashboardHandler struct {
	source  DashboardSource
	timeout time.Duration
}

func NewDashboardHandler(source DashboardSource, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{source: source, timeout: timeout}
}

type DashboardResponseDTO struct {
	Stats         remote.OrderStats `json:"stats"`
	WishlistCount int               `json:"wishlist_count"`
}

// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var resp DashboardResponseDTO
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := h.source.OrderStats(gctx)
		resp.Stats = stats
		return err
	})
	g.Go(func() error {
		count, err := h.source.WishlistCount(gctx)
		resp.WishlistCount = count
		return err
	})
	if err := g.Wait(); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

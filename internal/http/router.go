package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker reports whether the marketplace API answers.
type HealthChecker interface {
	Health(ctx context.Context) error
	BreakerState() string
}

type RouterConfig struct {
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Cart      *CartHandler
	Wishlist  *WishlistHandler
	Orders    *OrdersHandler
	Checkout  *CheckoutHandler
	Dashboard *DashboardHandler
	Session   *SessionHandler
}

// NewRouter wires every gateway route. Routes other than /health, /metrics,
// the cart and the session require a signed-in user.
func NewRouter(cfg RouterConfig, h Handlers, sessions SessionSource, health HealthChecker, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", healthHandler(health, log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// The stream outlives RequestTimeout and must not be compressed.
		r.With(RequireSession(sessions)).Get("/checkout/stream", h.Checkout.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Route("/session", func(r chi.Router) {
				r.Post("/", h.Session.Login)
				r.Get("/", h.Session.Current)
				r.Delete("/", h.Session.Logout)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Post("/items/{product_id}/increase", h.Cart.IncreaseQuantity)
				r.Post("/items/{product_id}/decrease", h.Cart.DecreaseQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireSession(sessions))

				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", h.Wishlist.GetWishlist)
					r.Post("/", h.Wishlist.AddItem)
					r.Post("/sync", h.Wishlist.Sync)
					r.Post("/toggle", h.Wishlist.Toggle)
					r.Delete("/{item_id}", h.Wishlist.RemoveItem)
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", h.Orders.ListOrders)
					r.Post("/sync", h.Orders.Sync)
					r.Get("/{order_id}/receipt", h.Orders.Receipt)
				})

				r.Get("/checkout", h.Checkout.Status)
				r.Post("/checkout", h.Checkout.Submit)
				r.Delete("/checkout", h.Checkout.Cancel)
				r.Get("/checkout/orders/{order_id}", h.Checkout.GetNegotiatedOrder)

				r.Get("/dashboard", h.Dashboard.GetDashboard)
			})
		})
	})

	return otelhttp.NewHandler(r, "marketplace-gateway")
}

type HealthResponseDTO struct {
	Status  string `json:"status"`
	Remote  string `json:"remote"`
	Breaker string `json:"breaker"`
}

func healthHandler(health HealthChecker, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponseDTO{Status: "ok", Remote: "ok", Breaker: health.BreakerState()}
		if err := health.Health(ctx); err != nil {
			log.Warn("marketplace API health check failed", "error", err)
			resp.Status = "degraded"
			resp.Remote = "unavailable"
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

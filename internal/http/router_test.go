package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/cart"
	"github.com/fjod/go_cart/marketplace-client/internal/checkout"
	"github.com/fjod/go_cart/marketplace-client/internal/events"
	"github.com/fjod/go_cart/marketplace-client/internal/receipt"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"github.com/fjod/go_cart/marketplace-client/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, sessions SessionSource, health HealthChecker) http.Handler {
	t.Helper()
	log := logger.Nop()
	ledger := cart.NewLedger(context.Background(), store.NewMemoryStore(), log)
	orch := checkout.New(checkout.DefaultConfig(), &checkoutRemote{}, ledger, noopHistory{}, sessions, events.Nop{}, log)
	t.Cleanup(orch.Shutdown)
	sm := session.NewManager(context.Background(), store.NewMemoryStore(), log)

	return NewRouter(RouterConfig{
		AllowedOrigins:     []string{"http://localhost:5173"},
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: testBodyLimit,
	}, Handlers{
		Cart:      NewCartHandler(ledger, testBodyLimit),
		Wishlist:  NewWishlistHandler(&mockWishlist{}, time.Second, testBodyLimit),
		Orders:    NewOrdersHandler(&mockHistory{}, receipt.NewRenderer(""), time.Second, log),
		Checkout:  NewCheckoutHandler(orch, time.Second, testBodyLimit, nil, log),
		Dashboard: NewDashboardHandler(&mockDashboard{count: 2}, time.Second),
		Session:   NewSessionHandler(sm, testBodyLimit),
	}, sessions, health, log)
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{name: "remote up", status: "ok"},
		{name: "remote down", err: errors.New("connection refused"), status: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, signedIn(), mockHealth{err: tt.err})
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var resp HealthResponseDTO
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "closed", resp.Breaker)
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestRouter_CartWorksSignedOut(t *testing.T) {
	router := newTestRouter(t, staticSessions{}, mockHealth{})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"id":"1","name":"Galla goat","price":9000}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_ProtectedRoutesNeedSession(t *testing.T) {
	router := newTestRouter(t, staticSessions{}, mockHealth{})

	for _, path := range []string{"/api/v1/wishlist", "/api/v1/orders", "/api/v1/checkout", "/api/v1/dashboard"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_SignedIn(t *testing.T) {
	router := newTestRouter(t, signedIn(), mockHealth{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DashboardResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.WishlistCount)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, signedIn(), mockHealth{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_http_requests_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, signedIn(), mockHealth{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

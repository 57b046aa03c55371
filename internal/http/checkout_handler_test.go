package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/cart"
	"github.com/fjod/go_cart/marketplace-client/internal/checkout"
	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/events"
	"github.com/fjod/go_cart/marketplace-client/internal/poller"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"github.com/fjod/go_cart/marketplace-client/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopHistory struct{}

func (noopHistory) AddOrder(domain.Order) {}

type checkoutFixture struct {
	handler *CheckoutHandler
	orch    *checkout.Orchestrator
	remote  *checkoutRemote
	cart    *cart.Ledger
	ticker  *poller.ManualTicker
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		remote: &checkoutRemote{},
		cart:   cart.NewLedger(context.Background(), store.NewMemoryStore(), logger.Nop()),
		ticker: poller.NewManualTicker(),
	}
	cfg := checkout.DefaultConfig()
	f.orch = checkout.New(cfg, f.remote, f.cart, noopHistory{}, signedIn(), events.Nop{}, logger.Nop(),
		checkout.WithPoller(poller.New(cfg.PollInterval, poller.WithTicker(f.ticker.Factory()))),
	)
	t.Cleanup(f.orch.Shutdown)

	f.handler = NewCheckoutHandler(f.orch, 5*time.Second, testBodyLimit, func(*http.Request) bool { return true }, logger.Nop())
	f.cart.AddItem(domain.Product{ID: "5", Name: "Boran heifer", Price: decimal.NewFromInt(40000)})
	return f
}

func checkoutBody(t *testing.T, method domain.PaymentMethod) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(checkout.Request{Form: checkout.Form{
		FullName:      "Achieng Otieno",
		Email:         "achieng@example.com",
		Phone:         "0712345678",
		County:        "Nakuru",
		Town:          "Naivasha",
		PaymentMethod: method,
	}})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestSubmitCheckout_CashOnDelivery(t *testing.T) {
	f := newCheckoutFixture(t)
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/", checkoutBody(t, domain.PaymentCashOnDelivery)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var view checkout.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, domain.CheckoutSucceeded, view.State)
	assert.Equal(t, domain.ID("77"), view.OrderID)
	assert.True(t, decimal.NewFromInt(41500).Equal(view.Totals.GrandTotal))
	assert.True(t, f.cart.Snapshot().IsEmpty())
}

func TestSubmitCheckout_MpesaAwaitsPayment(t *testing.T) {
	f := newCheckoutFixture(t)
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/", checkoutBody(t, domain.PaymentMpesa)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var view checkout.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, domain.CheckoutAwaitingMobilePayment, view.State)

	// a second submission while the first is polling is refused
	rec = httptest.NewRecorder()
	f.handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/", checkoutBody(t, domain.PaymentMpesa)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Cancel(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled CancelResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cancelled))
	assert.True(t, cancelled.Cancelled)
	assert.False(t, f.ticker.Tick(), "no polling after cancel")
}

func TestSubmitCheckout_ValidationErrors(t *testing.T) {
	f := newCheckoutFixture(t)
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"form":{"phone":"12345"}}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Contains(t, resp.Errors, "full_name")
	assert.Contains(t, resp.Errors, "phone")
	assert.Equal(t, 0, f.remote.created)
}

func TestSubmitCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.cart.Clear()
	rec := httptest.NewRecorder()

	f.handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/", checkoutBody(t, domain.PaymentCashOnDelivery)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNegotiatedOrder_AlreadyPaid(t *testing.T) {
	f := newCheckoutFixture(t)
	f.remote.order = domain.Order{Status: domain.OrderStatusPaid, TotalAmount: decimal.NewFromInt(30000)}
	rec := httptest.NewRecorder()

	f.handler.GetNegotiatedOrder(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "order_id", "55"))

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "This order has already been paid!", resp.Error)
}

func TestGetNegotiatedOrder_Pending(t *testing.T) {
	f := newCheckoutFixture(t)
	f.remote.order = domain.Order{Status: domain.OrderStatusPending, TotalAmount: decimal.NewFromInt(30000)}
	rec := httptest.NewRecorder()

	f.handler.GetNegotiatedOrder(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "order_id", "55"))

	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, domain.ID("55"), order.ID)
}

func TestCheckoutStatus_NoAttempt(t *testing.T) {
	f := newCheckoutFixture(t)
	rec := httptest.NewRecorder()

	f.handler.Status(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CheckoutStatusDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp.Attempt)
	assert.True(t, decimal.NewFromInt(40000).Equal(resp.Totals.Subtotal))
	assert.True(t, decimal.NewFromInt(1500).Equal(resp.Totals.Shipping))
}

func TestCheckoutStream(t *testing.T) {
	f := newCheckoutFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(f.handler.Stream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// the snapshot is written after the handler has subscribed
	var snapshot CheckoutStatusDTO
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Nil(t, snapshot.Attempt)

	_, err = f.orch.Submit(context.Background(), checkout.Request{Form: checkout.Form{
		FullName: "Achieng Otieno", Email: "achieng@example.com", Phone: "0712345678",
		County: "Nakuru", Town: "Naivasha", PaymentMethod: domain.PaymentCashOnDelivery,
	}})
	require.NoError(t, err)

	var states []domain.CheckoutState
	for len(states) == 0 || states[len(states)-1] != domain.CheckoutSucceeded {
		var change checkout.StateChange
		require.NoError(t, conn.ReadJSON(&change))
		states = append(states, change.To)
	}
	assert.Contains(t, states, domain.CheckoutSubmitting)
}

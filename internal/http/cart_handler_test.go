package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjod/go_cart/marketplace-client/internal/cart"
	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"github.com/fjod/go_cart/marketplace-client/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBodyLimit = 1 << 20

func newCartHandler(t *testing.T) (*CartHandler, *cart.Ledger) {
	t.Helper()
	ledger := cart.NewLedger(context.Background(), store.NewMemoryStore(), logger.Nop())
	return NewCartHandler(ledger, testBodyLimit), ledger
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) domain.Cart {
	t.Helper()
	var c domain.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	return c
}

func TestGetCart_Empty(t *testing.T) {
	handler, _ := newCartHandler(t)
	rec := httptest.NewRecorder()

	handler.GetCart(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalQuantity)
	assert.True(t, c.TotalAmount.IsZero())
}

func TestAddItem_Success(t *testing.T) {
	handler, _ := newCartHandler(t)
	body, _ := json.Marshal(AddItemRequestDTO{ID: "12", Name: "Dorper ram", Price: decimal.NewFromInt(18000)})

	rec := httptest.NewRecorder()
	handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	c := decodeCart(t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, domain.ID("12"), c.Items[0].ID)
	assert.Equal(t, 1, c.TotalQuantity)
	assert.True(t, decimal.NewFromInt(18000).Equal(c.TotalAmount))
}

func TestAddItem_SameProductTwiceIncrementsQuantity(t *testing.T) {
	handler, ledger := newCartHandler(t)
	body := `{"id": 12, "name": "Dorper ram", "price": 18000}`

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	c := ledger.Snapshot()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(36000).Equal(c.TotalAmount))
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "invalid json", body: `{`, code: "invalid_request"},
		{name: "missing id", body: `{"name":"x","price":10}`, code: "invalid_product_id"},
		{name: "negative price", body: `{"id":"1","price":-5}`, code: "invalid_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, ledger := newCartHandler(t)
			rec := httptest.NewRecorder()

			handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.True(t, ledger.Snapshot().IsEmpty())
		})
	}
}

func TestAddItem_BodyTooLarge(t *testing.T) {
	ledger := cart.NewLedger(context.Background(), store.NewMemoryStore(), logger.Nop())
	handler := NewCartHandler(ledger, 8)

	rec := httptest.NewRecorder()
	handler.AddItem(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"1","name":"a long name"}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestQuantityHandlers(t *testing.T) {
	handler, ledger := newCartHandler(t)
	ledger.AddItem(domain.Product{ID: "3", Name: "Sahiwal cow", Price: decimal.NewFromInt(60000)})

	rec := httptest.NewRecorder()
	handler.IncreaseQuantity(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "product_id", "3"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeCart(t, rec).TotalQuantity)

	rec = httptest.NewRecorder()
	handler.DecreaseQuantity(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "product_id", "3"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeCart(t, rec).TotalQuantity)

	// decreasing the last unit removes the line
	rec = httptest.NewRecorder()
	handler.DecreaseQuantity(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "product_id", "3"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestRemoveItem_UnknownProductIsNoop(t *testing.T) {
	handler, ledger := newCartHandler(t)
	ledger.AddItem(domain.Product{ID: "3", Name: "Sahiwal cow", Price: decimal.NewFromInt(60000)})

	rec := httptest.NewRecorder()
	handler.RemoveItem(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "product_id", "404"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, rec).Items, 1)
}

func TestRemoveItem_MissingParam(t *testing.T) {
	handler, _ := newCartHandler(t)
	rec := httptest.NewRecorder()

	handler.RemoveItem(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCart(t *testing.T) {
	handler, ledger := newCartHandler(t)
	ledger.AddItem(domain.Product{ID: "3", Name: "Sahiwal cow", Price: decimal.NewFromInt(60000)})

	rec := httptest.NewRecorder()
	handler.ClearCart(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())
}

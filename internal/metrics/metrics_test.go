package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCheckoutOutcome(t *testing.T) {
	before := testutil.ToFloat64(CheckoutOutcomesTotal.WithLabelValues("SUCCEEDED", "mpesa"))

	RecordCheckoutOutcome("SUCCEEDED", "mpesa", 15*time.Second)

	after := testutil.ToFloat64(CheckoutOutcomesTotal.WithLabelValues("SUCCEEDED", "mpesa"))
	assert.Equal(t, before+1, after)
}

func TestRecordPoll(t *testing.T) {
	before := testutil.ToFloat64(PaymentPollsTotal.WithLabelValues("pending"))
	RecordPoll("pending")
	RecordPoll("pending")
	assert.Equal(t, before+2, testutil.ToFloat64(PaymentPollsTotal.WithLabelValues("pending")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/orders/{order_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestsTotal.WithLabelValues("/orders/{order_id}", http.MethodGet, "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Duration of gateway HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of gateway HTTP requests",
		},
		[]string{"route", "method", "status_code"},
	)
)

var (
	CheckoutAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Total number of checkout submissions that passed validation",
		},
		[]string{"payment_method"},
	)

	CheckoutOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_outcomes_total",
			Help: "Checkout attempts by terminal outcome",
		},
		[]string{"outcome", "payment_method"},
	)

	CheckoutValidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_validation_failures_total",
			Help: "Total number of checkout forms rejected by validation",
		},
	)

	CheckoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Time from submission to terminal outcome",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"outcome"},
	)

	PaymentPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_polls_total",
			Help: "Payment status polls by observed result",
		},
		[]string{"result"},
	)
)

func RecordCheckoutAttempt(method string) {
	CheckoutAttemptsTotal.WithLabelValues(method).Inc()
}

func RecordCheckoutOutcome(outcome, method string, elapsed time.Duration) {
	CheckoutOutcomesTotal.WithLabelValues(outcome, method).Inc()
	CheckoutDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func RecordValidationFailure() {
	CheckoutValidationFailuresTotal.Inc()
}

// RecordPoll counts one status poll. result is the observed status or
// "error".
func RecordPoll(result string) {
	PaymentPollsTotal.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		HTTPRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method, code).Observe(time.Since(start).Seconds())
	})
}

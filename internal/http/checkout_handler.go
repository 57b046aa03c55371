package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/checkout"
	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type Checkout interface {
	Submit(ctx context.Context, req checkout.Request) (*checkout.Attempt, error)
	Current() (*checkout.Attempt, bool)
	Cancel() bool
	LoadNegotiated(ctx context.Context, id domain.ID) (domain.Order, error)
	Totals() checkout.Totals
	Subscribe() (<-chan checkout.StateChange, func())
}

type CheckoutHandler struct {
	checkout    Checkout
	timeout     time.Duration
	maxBodySize int64
	upgrader    websocket.Upgrader
	log         *slog.Logger
}

func NewCheckoutHandler(c Checkout, timeout time.Duration, maxBodySize int64, checkOrigin func(r *http.Request) bool, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:    c,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

type CheckoutStatusDTO struct {
	Attempt *checkout.View  `json:"attempt"`
	Totals  checkout.Totals `json:"totals"`
}

type CancelResponseDTO struct {
	Cancelled bool `json:"cancelled"`
}

// GET /api/v1/checkout/orders/{order_id}
func (h *CheckoutHandler) GetNegotiatedOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.checkout.LoadNegotiated(ctx, domain.ID(orderID))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/checkout
//
// The attempt keeps running after the response for M-Pesa payments; clients
// follow it with GET /checkout or the stream.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if !decodeBody(w, r, h.maxBodySize, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	attempt, err := h.checkout.Submit(ctx, req)
	if err != nil {
		if attempt != nil && !errors.Is(err, context.Canceled) {
			h.log.Info("checkout rejected", "attempt_id", attempt.ID, "user_id", userIDFromContext(r.Context()), "error", err)
		}
		handleError(w, err)
		return
	}

	view := attempt.View()
	status := http.StatusAccepted
	if view.State == domain.CheckoutSucceeded {
		status = http.StatusCreated
	}
	respondJSON(w, status, view)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := CheckoutStatusDTO{Totals: h.checkout.Totals()}
	if a, ok := h.checkout.Current(); ok {
		v := a.View()
		resp.Attempt = &v
	}
	respondJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CancelResponseDTO{Cancelled: h.checkout.Cancel()})
}

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// GET /api/v1/checkout/stream
//
// Sends a status snapshot, then every state change until the client goes
// away.
func (h *CheckoutHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	changes, unsubscribe := h.checkout.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := CheckoutStatusDTO{Totals: h.checkout.Totals()}
	if a, ok := h.checkout.Current(); ok {
		v := a.View()
		snapshot.Attempt = &v
	}
	if err := h.write(conn, snapshot); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case change, ok := <-changes:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := h.write(conn, change); err != nil {
				h.log.Debug("checkout stream closed", "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *CheckoutHandler) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(v)
}

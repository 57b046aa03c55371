package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is one line of an order submission.
type OrderLine struct {
	AnimalID domain.ID
	Quantity int
	Price    decimal.Decimal
}

// OrderRequest is the body of an order create or update.
type OrderRequest struct {
	Items           []OrderLine
	TotalAmount     decimal.Decimal
	PaymentMethod   domain.PaymentMethod
	PhoneNumber     string
	ShippingAddress string
	// Status is only sent on updates.
	Status domain.OrderStatus
}

type orderLineWire struct {
	AnimalID domain.ID   `json:"animal_id"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

type orderRequestWire struct {
	Items           []orderLineWire      `json:"items"`
	TotalAmount     json.Number          `json:"total_amount"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	PhoneNumber     string               `json:"phone_number"`
	ShippingAddress string               `json:"shipping_address"`
	Status          domain.OrderStatus   `json:"status,omitempty"`
}

// MarshalJSON writes money as JSON numbers, which is what the API expects.
func (r OrderRequest) MarshalJSON() ([]byte, error) {
	w := orderRequestWire{
		Items:           make([]orderLineWire, 0, len(r.Items)),
		TotalAmount:     json.Number(r.TotalAmount.String()),
		PaymentMethod:   r.PaymentMethod,
		PhoneNumber:     r.PhoneNumber,
		ShippingAddress: r.ShippingAddress,
		Status:          r.Status,
	}
	for _, line := range r.Items {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		w.Items = append(w.Items, orderLineWire{
			AnimalID: line.AnimalID,
			Quantity: qty,
			Price:    json.Number(line.Price.String()),
		})
	}
	return json.Marshal(w)
}

// OrderStats is the dashboard aggregate for the session user.
type OrderStats struct {
	TotalOrders   int             `json:"total_orders"`
	PendingOrders int             `json:"pending_orders"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
}

func orderPath(id domain.ID) string {
	return "/orders/" + url.PathEscape(id.String())
}

// ListOrders returns the order history of the session user.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var list listPayload[domain.Order]
	list.key = "orders"
	if err := c.do(ctx, request{op: "list orders", method: http.MethodGet, path: "/orders/", decode: &list}); err != nil {
		return nil, err
	}
	return list.items, nil
}

func (c *Client) GetOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, request{op: "get order", method: http.MethodGet, path: orderPath(id), decode: &order})
	return order, err
}

func (c *Client) GetOrderStatus(ctx context.Context, id domain.ID) (domain.OrderStatus, error) {
	var payload struct {
		Status domain.OrderStatus `json:"status"`
	}
	err := c.do(ctx, request{op: "get order status", method: http.MethodGet, path: orderPath(id) + "/status", decode: &payload})
	if err != nil {
		return "", err
	}
	if payload.Status == "" {
		return "", &domain.RemoteError{Op: "get order status", Err: fmt.Errorf("response has no status")}
	}
	return payload.Status, nil
}

// CreateOrder submits a new order. idempotencyKey may be empty, in which case
// a fresh one is generated.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (domain.Order, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	req.Status = ""

	var payload struct {
		Order *domain.Order `json:"order"`
	}
	err := c.do(ctx, request{
		op:     "create order",
		method: http.MethodPost,
		path:   "/orders/",
		body:   req,
		header: http.Header{"Idempotency-Key": []string{idempotencyKey}},
		decode: &payload,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if payload.Order == nil || payload.Order.ID == "" {
		return domain.Order{}, &domain.RemoteError{Op: "create order", Err: fmt.Errorf("response has no order id")}
	}
	return *payload.Order, nil
}

// UpdateOrder replaces an existing order, used to resubmit a negotiated one.
func (c *Client) UpdateOrder(ctx context.Context, id domain.ID, req OrderRequest) error {
	return c.do(ctx, request{op: "update order", method: http.MethodPut, path: orderPath(id), body: req})
}

func (c *Client) OrderStats(ctx context.Context) (OrderStats, error) {
	var stats OrderStats
	err := c.do(ctx, request{op: "order stats", method: http.MethodGet, path: "/orders/stats", decode: &stats})
	return stats, err
}

// Health reports whether the API answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, request{op: "health", method: http.MethodGet, path: "/health", public: true})
}

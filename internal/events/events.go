// Package events publishes checkout outcomes so downstream consumers (order
// confirmation mail, analytics) can react without polling the gateway.
package events

import (
	"context"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/shopspring/decimal"
)

type Type string

const (
	CheckoutSucceeded Type = "checkout.succeeded"
	CheckoutFailed    Type = "checkout.failed"
	CheckoutTimedOut  Type = "checkout.timed_out"
)

type Event struct {
	Type          Type                 `json:"event_type"`
	OrderID       domain.ID            `json:"order_id"`
	UserID        domain.ID            `json:"user_id,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Negotiated    bool                 `json:"negotiated"`
	Message       string               `json:"message,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus normalizes case ("Paid" and "paid" are the same status)
// and rejects anything outside the known set.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	st, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// IsPaid reports whether the payment went through.
func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusPaid || s == OrderStatusCompleted
}

func (s OrderStatus) IsTerminal() bool {
	return s.IsPaid() || s == OrderStatusFailed || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMpesa          PaymentMethod = "mpesa"
	PaymentCashOnDelivery PaymentMethod = "cod"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mpesa", "m-pesa":
		return PaymentMpesa, nil
	case "cod", "cash_on_delivery":
		return PaymentCashOnDelivery, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("payment method: %w", err)
	}
	if raw == "" {
		*m = ""
		return nil
	}
	pm, err := ParsePaymentMethod(raw)
	if err != nil {
		return err
	}
	*m = pm
	return nil
}

// OrderItem is one order line. The API sometimes sends a line as a bare string
// (the listing name) instead of an object; both forms decode here.
type OrderItem struct {
	AnimalID ID              `json:"animal_id"`
	Name     string          `json:"name,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderItemObject OrderItem

func (i *OrderItem) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("order item: empty value")
	}

	switch b[0] {
	case '"':
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return fmt.Errorf("order item: %w", err)
		}
		*i = OrderItem{Name: name, Quantity: 1, Price: decimal.Zero}
		return nil
	case '{':
		var obj orderItemObject
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("order item: %w", err)
		}
		if obj.Quantity < 1 {
			obj.Quantity = 1
		}
		*i = OrderItem(obj)
		return nil
	default:
		return fmt.Errorf("order item: unsupported JSON value %s", string(b))
	}
}

type Order struct {
	ID              ID              `json:"id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method,omitempty"`
	PhoneNumber     string          `json:"phone_number,omitempty"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       *Timestamp      `json:"created_at,omitempty"`
}

// Timestamp accepts RFC 3339 and plain dates, both of which the API emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

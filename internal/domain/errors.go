package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrCheckoutInProgress  = errors.New("a checkout is already in progress")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrNoSession           = errors.New("no active session")
	ErrItemNotFound        = errors.New("wishlist item not found")
	ErrItemPending         = errors.New("wishlist item is not confirmed yet")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyPaid    = errors.New("this order has already been paid")
	ErrPaymentFailed       = errors.New("mobile payment failed")
	ErrPaymentTimeout      = errors.New("mobile payment confirmation timed out")
	ErrOrderCancelled      = errors.New("order was cancelled")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)

// ValidationError carries one message per rejected form field. It never
// leaves the process.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RemoteError is a failed call to the marketplace API. StatusCode is zero when
// no HTTP response was received.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": remote call failed"
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsClientError reports a 4xx answer, which retrying will not fix.
func (e *RemoteError) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// RemoteMessage returns the server supplied message carried by err, or fallback.
func RemoteMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

// IsRetryable is true for transport failures and 5xx answers.
func IsRetryable(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	return !re.IsClientError()
}

// ConflictError is returned when checkout is attempted on an order the remote
// already reports as paid.
type ConflictError struct {
	OrderID ID
	Status  OrderStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s is already %s", e.OrderID, e.Status)
}

func (e *ConflictError) Unwrap() error {
	return ErrOrderAlreadyPaid
}

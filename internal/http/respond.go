package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeBody reads a JSON body of at most limit bytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError converts domain errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		remoteErr  *domain.RemoteError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Please fix the errors in the form",
			Code:   "validation_failed",
			Errors: validation.Fields,
		})
	case errors.As(err, &conflict):
		respondError(w, http.StatusConflict, "already_paid", "This order has already been paid!")
	case errors.Is(err, domain.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, domain.ErrItemPending):
		respondError(w, http.StatusConflict, "item_pending", err.Error())
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Your cart is empty")
	case errors.Is(err, domain.ErrNoSession),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrTokenExpired):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.As(err, &remoteErr):
		status := http.StatusBadGateway
		if remoteErr.IsClientError() {
			status = remoteErr.StatusCode
		}
		respondError(w, status, "remote_error", domain.RemoteMessage(err, "marketplace API request failed"))
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusConflict, "cancelled", "Checkout cancelled.")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

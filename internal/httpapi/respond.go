// Package httpapi holds the HTTP surface of both deployables: the public
// cart and checkout endpoints, the internal settlement RPCs, the provider
// webhook, and the error-to-status mapping.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/elonaire/templates-backend/internal/cart"
	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/identity"
	"github.com/elonaire/templates-backend/internal/orders"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFromError(err), ErrorResponse{Error: err.Error()})
}

// statusFromError maps domain sentinels onto HTTP statuses. Upstream
// failures surface as 502 so callers can tell our fault from a sibling's.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, clients.ErrNotAuthenticated), errors.Is(err, gateway.ErrNoCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrNotOrderOwner):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidOperation),
		errors.Is(err, orders.ErrCartAlreadyOrdered):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, identity.ErrResolutionFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

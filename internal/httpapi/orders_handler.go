package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/orders"
)

type orderOrchestrator interface {
	CreateOrder(ctx context.Context, creds gateway.Credentials, sessionID string) (string, error)
	UpdateOrder(ctx context.Context, creds gateway.Credentials, orderID, status string) (string, error)
	GetAllArtifactsForOrder(ctx context.Context, creds gateway.Credentials, orderID string) (orders.ArtifactsPurchase, error)
	ListOrders(ctx context.Context, creds gateway.Credentials) ([]orders.Order, error)
}

type OrdersHandler struct {
	orch orderOrchestrator
}

func NewOrdersHandler(orch orderOrchestrator) *OrdersHandler {
	return &OrdersHandler{orch: orch}
}

type createOrderResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type updateOrderRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type updateOrderResponse struct {
	Status string `json:"status"`
}

// Create handles POST /api/v1/orders: checkout. The body is empty; identity
// comes from the forwarded credentials and the session cookie.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	url, err := h.orch.CreateOrder(r.Context(), gateway.FromRequest(r), sessionFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, createOrderResponse{AuthorizationURL: url})
}

// List handles GET /api/v1/orders: the caller's order history.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.orch.ListOrders(r.Context(), gateway.FromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	respondJSON(w, http.StatusOK, list)
}

// Update handles POST /internal/orders/update, the RPC settlement calls to
// confirm an order.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	status, err := h.orch.UpdateOrder(r.Context(), gateway.FromRequest(r), req.OrderID, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updateOrderResponse{Status: status})
}

// Artifacts handles GET /internal/orders/{order_id}/artifacts.
func (h *OrdersHandler) Artifacts(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	details, err := h.orch.GetAllArtifactsForOrder(r.Context(), gateway.FromRequest(r), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

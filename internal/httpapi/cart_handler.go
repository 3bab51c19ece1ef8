package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/elonaire/templates-backend/internal/cart"
	"github.com/elonaire/templates-backend/internal/gateway"
)

// SessionCookie keys anonymous carts; it is minted on the first cart
// mutation without one.
const SessionCookie = "session_id"

type cartManager interface {
	CreateOrUpdateCart(ctx context.Context, creds gateway.Credentials, sessionID, extProductID, extLicenseID string, op cart.Operation) (cart.Cart, string, error)
	GetCart(ctx context.Context, sessionID string) (cart.Cart, error)
}

type CartHandler struct {
	carts cartManager
}

func NewCartHandler(carts cartManager) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartRequest struct {
	ProductID string `json:"productId"`
	LicenseID string `json:"licenseId"`
	Operation string `json:"operation"`
}

// CreateOrUpdate handles POST /api/v1/cart.
func (h *CartHandler) CreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sessionID := sessionFromRequest(r)
	updated, sessionID, err := h.carts.CreateOrUpdateCart(r.Context(),
		gateway.FromRequest(r), sessionID, req.ProductID, req.LicenseID, cart.Operation(req.Operation))
	if err != nil {
		respondError(w, err)
		return
	}

	setSessionCookie(w, r, sessionID)
	respondJSON(w, http.StatusOK, updated)
}

// Get handles GET /api/v1/cart: the open cart bound to the caller's session.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r)
	if sessionID == "" {
		respondError(w, cart.ErrCartNotFound)
		return
	}
	c, err := h.carts.GetCart(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func sessionFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value == sessionID {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	})
}

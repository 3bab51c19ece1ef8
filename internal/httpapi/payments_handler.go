package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/payments"
)

// SignatureHeader carries hex(HMAC-SHA512(secret, rawBody)) on webhook
// deliveries.
const SignatureHeader = "x-paystack-signature"

// maxWebhookBody caps how much of a delivery we buffer before the signature
// check; provider events are a few KB at most.
const maxWebhookBody = 1 << 20

type settlementPipeline interface {
	Settle(ctx context.Context, ev payments.ChargeEvent)
}

type paymentProvider interface {
	InitializeTransaction(ctx context.Context, email string, amount int64, reference string) (clients.InitializePaymentData, error)
}

type authVerifier interface {
	CheckAuth(ctx context.Context, creds gateway.Credentials) (clients.AuthStatus, error)
}

type PaymentsHandler struct {
	secret      []byte
	environment string
	pipeline    settlementPipeline
	provider    paymentProvider
	auth        authVerifier
	log         *slog.Logger
}

func NewPaymentsHandler(secret []byte, environment string, pipeline settlementPipeline, provider paymentProvider, auth authVerifier, log *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		secret:      secret,
		environment: environment,
		pipeline:    pipeline,
		provider:    provider,
		auth:        auth,
		log:         log,
	}
}

// Webhook handles POST /payments/webhook. 201 for an accepted
// charge.success regardless of settlement step outcomes, 200 for events we
// ignore, 400 for a bad signature or malformed body. Anything else invites
// the provider to retry a charge it already completed.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		return
	}

	// Skipping verification is an explicit dev-only override, never a
	// fallback for a missing secret.
	if h.environment != "dev" {
		if !payments.VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
			h.log.Warn("webhook signature mismatch")
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid signature"})
			return
		}
	}

	var ev payments.ChargeEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.Event == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed event"})
		return
	}

	if ev.Event != payments.EventChargeSuccess {
		// Acknowledge without action so the provider does not retry events
		// we do not settle on.
		respondJSON(w, http.StatusOK, nil)
		return
	}
	if ev.Data.Reference == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing reference"})
		return
	}

	h.pipeline.Settle(r.Context(), ev)
	respondJSON(w, http.StatusCreated, nil)
}

// Initiate handles POST /internal/payments/initiate, called by the checkout
// flow with the buyer's forwarded credentials.
func (h *PaymentsHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	creds := gateway.FromRequest(r)
	status, err := h.auth.CheckAuth(r.Context(), creds)
	if err != nil {
		respondError(w, err)
		return
	}
	if !status.IsAuth {
		respondError(w, clients.ErrNotAuthenticated)
		return
	}

	var req clients.UserPaymentDetails
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.Reference == "" || req.Amount <= 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "email, amount and reference are required"})
		return
	}

	data, err := h.provider.InitializeTransaction(r.Context(), req.Email, req.Amount, req.Reference)
	if err != nil {
		h.log.Error("payment initiation failed", "reference", req.Reference, "error", err)
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "payment initiation failed"})
		return
	}
	respondJSON(w, http.StatusOK, data)
}

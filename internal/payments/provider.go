package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/elonaire/templates-backend/internal/clients"
)

type initializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type initializeResponse struct {
	Status  bool                          `json:"status"`
	Message string                        `json:"message"`
	Data    clients.InitializePaymentData `json:"data"`
}

// Provider talks to the payment provider's REST API. Unlike sibling-service
// calls, these are authenticated with the shared secret, never with caller
// credentials.
type Provider struct {
	client *resty.Client
}

func NewProvider(baseURL, secret string, timeout time.Duration) *Provider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secret).
		SetTimeout(timeout)
	return &Provider{client: client}
}

// InitializeTransaction opens a provider transaction for the given amount
// (minor currency units), tagged with the order id as the reference the
// webhook will echo back.
func (p *Provider) InitializeTransaction(ctx context.Context, email string, amount int64, reference string) (clients.InitializePaymentData, error) {
	var out initializeResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(initializeRequest{Email: email, Amount: amount, Reference: reference}).
		SetResult(&out).
		Post("/transaction/initialize")
	if err != nil {
		return clients.InitializePaymentData{}, fmt.Errorf("calling provider: %w", err)
	}
	if resp.IsError() || !out.Status {
		return clients.InitializePaymentData{}, fmt.Errorf("provider rejected initialization: %s (%s)", resp.Status(), out.Message)
	}
	return out.Data, nil
}

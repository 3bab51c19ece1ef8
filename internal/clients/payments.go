package clients

import (
	"context"

	"github.com/elonaire/templates-backend/internal/gateway"
)

// UserPaymentDetails describes the transaction the checkout flow asks the
// payments service to initiate. Amount is minor currency units; Reference is
// the order id echoed back by the provider webhook.
type UserPaymentDetails struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// InitializePaymentData is the provider's handle on an initiated
// transaction; AuthorizationURL is where the buyer completes the charge.
type InitializePaymentData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// PaymentsClient is the orders service's view of the payments service.
type PaymentsClient struct {
	gw      *gateway.Gateway
	baseURL string
}

func NewPaymentsClient(gw *gateway.Gateway, baseURL string) *PaymentsClient {
	return &PaymentsClient{gw: gw, baseURL: baseURL}
}

func (c *PaymentsClient) InitiatePayment(ctx context.Context, creds gateway.Credentials, details UserPaymentDetails) (InitializePaymentData, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return InitializePaymentData{}, err
	}
	var resp InitializePaymentData
	if err := call.Post(ctx, "/internal/payments/initiate", details, &resp); err != nil {
		return InitializePaymentData{}, err
	}
	return resp, nil
}

package clients

import (
	"context"

	"github.com/elonaire/templates-backend/internal/gateway"
)

// ArtifactsPurchaseDetails lists what an order entitles its buyer to. The
// buyer id is the external user key, as the files service expects.
type ArtifactsPurchaseDetails struct {
	BuyerID   string   `json:"buyerId"`
	Artifacts []string `json:"artifacts"`
}

type updateOrderRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type updateOrderResponse struct {
	Status string `json:"status"`
}

// OrdersClient is the payments service's view of the orders service.
type OrdersClient struct {
	gw      *gateway.Gateway
	baseURL string
}

func NewOrdersClient(gw *gateway.Gateway, baseURL string) *OrdersClient {
	return &OrdersClient{gw: gw, baseURL: baseURL}
}

func (c *OrdersClient) UpdateOrder(ctx context.Context, creds gateway.Credentials, orderID, status string) (string, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return "", err
	}
	var resp updateOrderResponse
	if err := call.Post(ctx, "/internal/orders/update", updateOrderRequest{OrderID: orderID, Status: status}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *OrdersClient) GetAllArtifactsForOrder(ctx context.Context, creds gateway.Credentials, orderID string) (ArtifactsPurchaseDetails, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return ArtifactsPurchaseDetails{}, err
	}
	var resp ArtifactsPurchaseDetails
	if err := call.Get(ctx, "/internal/orders/"+orderID+"/artifacts", &resp); err != nil {
		return ArtifactsPurchaseDetails{}, err
	}
	return resp, nil
}

package clients

import (
	"context"

	"github.com/elonaire/templates-backend/internal/gateway"
)

type purchaseFileRequest struct {
	FileName  string `json:"fileName"`
	ExtUserID string `json:"extUserId"`
}

type purchaseFileResponse struct {
	FileID string `json:"fileId"`
}

// FilesClient talks to the file storage service, which records entitlements
// permitting buyers to download purchased artifacts.
type FilesClient struct {
	gw      *gateway.Gateway
	baseURL string
}

func NewFilesClient(gw *gateway.Gateway, baseURL string) *FilesClient {
	return &FilesClient{gw: gw, baseURL: baseURL}
}

// PurchaseFile grants the buyer an entitlement on one artifact.
func (c *FilesClient) PurchaseFile(ctx context.Context, creds gateway.Credentials, externalBuyerID, artifactRef string) (string, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return "", err
	}
	var resp purchaseFileResponse
	body := purchaseFileRequest{FileName: artifactRef, ExtUserID: externalBuyerID}
	if err := call.Post(ctx, "/files/purchase", body, &resp); err != nil {
		return "", err
	}
	return resp.FileID, nil
}

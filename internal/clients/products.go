package clients

import (
	"context"

	"github.com/elonaire/templates-backend/internal/gateway"
)

type productPriceResponse struct {
	Price int64 `json:"price"`
}

type licenseFactorResponse struct {
	PriceFactor int64 `json:"priceFactor"`
}

type productArtifactResponse struct {
	Artifact string `json:"artifact"`
}

// ProductsClient talks to the catalog service. Prices are minor currency
// units; the artifact is the file reference granted on settlement.
type ProductsClient struct {
	gw      *gateway.Gateway
	baseURL string
}

func NewProductsClient(gw *gateway.Gateway, baseURL string) *ProductsClient {
	return &ProductsClient{gw: gw, baseURL: baseURL}
}

// GetProductPrice is public catalog data; no credentials are forwarded.
func (c *ProductsClient) GetProductPrice(ctx context.Context, externalProductID string) (int64, error) {
	call, err := c.gw.Call(c.baseURL, false, gateway.Credentials{})
	if err != nil {
		return 0, err
	}
	var resp productPriceResponse
	if err := call.Get(ctx, "/products/"+externalProductID+"/price", &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

func (c *ProductsClient) GetLicensePriceFactor(ctx context.Context, externalLicenseID string) (int64, error) {
	call, err := c.gw.Call(c.baseURL, false, gateway.Credentials{})
	if err != nil {
		return 0, err
	}
	var resp licenseFactorResponse
	if err := call.Get(ctx, "/licenses/"+externalLicenseID+"/price-factor", &resp); err != nil {
		return 0, err
	}
	return resp.PriceFactor, nil
}

// GetProductArtifact returns the downloadable artifact reference for a
// product under a license tier.
func (c *ProductsClient) GetProductArtifact(ctx context.Context, creds gateway.Credentials, externalProductID, externalLicenseID string) (string, error) {
	call, err := c.gw.Call(c.baseURL, false, creds)
	if err != nil {
		return "", err
	}
	var resp productArtifactResponse
	if err := call.Get(ctx, "/products/"+externalProductID+"/artifacts/"+externalLicenseID, &resp); err != nil {
		return "", err
	}
	return resp.Artifact, nil
}

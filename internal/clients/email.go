package clients

import (
	"context"

	"github.com/elonaire/templates-backend/internal/gateway"
)

// Email is the message contract of the notification service.
type Email struct {
	Recipient EmailUser `json:"recipient"`
	Subject   string    `json:"subject"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

type EmailUser struct {
	FullName     string `json:"fullName,omitempty"`
	EmailAddress string `json:"emailAddress"`
}

type sendEmailResponse struct {
	Status string `json:"status"`
}

type EmailClient struct {
	gw      *gateway.Gateway
	baseURL string
}

func NewEmailClient(gw *gateway.Gateway, baseURL string) *EmailClient {
	return &EmailClient{gw: gw, baseURL: baseURL}
}

func (c *EmailClient) SendEmail(ctx context.Context, creds gateway.Credentials, email Email) (string, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return "", err
	}
	var resp sendEmailResponse
	if err := call.Post(ctx, "/email/send", email, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

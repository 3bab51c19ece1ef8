// Package clients holds the typed clients for sibling services. Every call
// goes through the credential gateway; no client touches headers itself.
package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonaire/templates-backend/internal/gateway"
)

// ErrNotAuthenticated means the identity service rejected or could not
// confirm the caller's credentials.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthStatus is the identity service's verdict on a set of credentials.
type AuthStatus struct {
	Sub    string `json:"sub"`
	IsAuth bool   `json:"isAuth"`
}

type signInRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string `json:"token"`
}

type userEmailResponse struct {
	Email string `json:"email"`
}

// AuthClient talks to the identity (ACL) service.
type AuthClient struct {
	gw              *gateway.Gateway
	baseURL         string
	serviceUser     string
	servicePassword string
}

func NewAuthClient(gw *gateway.Gateway, baseURL, serviceUser, servicePassword string) *AuthClient {
	return &AuthClient{
		gw:              gw,
		baseURL:         baseURL,
		serviceUser:     serviceUser,
		servicePassword: servicePassword,
	}
}

// CheckAuth verifies the forwarded credentials. A reachable identity service
// answering "not authenticated" is not an error; callers that require auth
// check IsAuth.
func (c *AuthClient) CheckAuth(ctx context.Context, creds gateway.Credentials) (AuthStatus, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return AuthStatus{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	var status AuthStatus
	if err := call.Post(ctx, "/auth/check", nil, &status); err != nil {
		return AuthStatus{}, err
	}
	return status, nil
}

// SignInAsService exchanges the configured service account for a short-lived
// token, wrapped as forwardable credentials. Used on paths with no user
// session (webhook settlement).
func (c *AuthClient) SignInAsService(ctx context.Context) (gateway.Credentials, error) {
	call, err := c.gw.Call(c.baseURL, false, gateway.Credentials{})
	if err != nil {
		return gateway.Credentials{}, err
	}

	var resp signInResponse
	body := signInRequest{UserName: c.serviceUser, Password: c.servicePassword}
	if err := call.Post(ctx, "/auth/sign-in", body, &resp); err != nil {
		return gateway.Credentials{}, err
	}
	if resp.Token == "" {
		return gateway.Credentials{}, fmt.Errorf("%w: sign-in returned empty token", ErrNotAuthenticated)
	}
	return gateway.FromToken(resp.Token), nil
}

// GetUserEmail resolves the notification address for an external user id.
func (c *AuthClient) GetUserEmail(ctx context.Context, creds gateway.Credentials, externalUserID string) (string, error) {
	call, err := c.gw.Call(c.baseURL, true, creds)
	if err != nil {
		return "", err
	}

	var resp userEmailResponse
	if err := call.Get(ctx, "/users/"+externalUserID+"/email", &resp); err != nil {
		return "", err
	}
	return resp.Email, nil
}

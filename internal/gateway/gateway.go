// Package gateway is the single place where caller credentials cross a
// service boundary. Every outbound inter-service call is built here: the
// caller's bearer token and session cookie are attached as headers, or the
// call is refused outright when authentication is required and no
// credentials were supplied.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/elonaire/templates-backend/pkg/circuitbreaker"
)

var (
	// ErrNoCredentials means an authenticated call was attempted without
	// caller credentials. The gateway fails closed: no connection is made.
	ErrNoCredentials = errors.New("outbound call requires credentials")

	// ErrUpstream wraps any non-2xx response or transport failure from a
	// sibling service.
	ErrUpstream = errors.New("upstream service failure")
)

// Credentials carries the caller identity forwarded on outbound calls. It is
// an explicit value threaded through call chains, never read from ambient
// request state.
type Credentials struct {
	Authorization string
	Cookie        string
}

// FromRequest extracts forwardable credentials from an inbound request.
func FromRequest(r *http.Request) Credentials {
	return Credentials{
		Authorization: r.Header.Get("Authorization"),
		Cookie:        r.Header.Get("Cookie"),
	}
}

// FromToken wraps a raw bearer token (e.g. a service-account token) as
// forwardable credentials.
func FromToken(token string) Credentials {
	return Credentials{Authorization: "Bearer " + token}
}

func (c Credentials) Empty() bool {
	return c.Authorization == "" && c.Cookie == ""
}

// Gateway builds outbound calls against named targets. One HTTP client and
// one circuit breaker are kept per target base URL.
type Gateway struct {
	mu       sync.Mutex
	clients  map[string]*resty.Client
	breakers map[string]*gobreaker.CircuitBreaker[*resty.Response]
	timeout  time.Duration
}

func New(timeout time.Duration) *Gateway {
	return &Gateway{
		clients:  make(map[string]*resty.Client),
		breakers: make(map[string]*gobreaker.CircuitBreaker[*resty.Response]),
		timeout:  timeout,
	}
}

// Call prepares an outbound call against target. When requiresAuth is true
// and creds are empty, the call fails closed before any connection attempt.
func (g *Gateway) Call(target string, requiresAuth bool, creds Credentials) (*Call, error) {
	if requiresAuth && creds.Empty() {
		return nil, ErrNoCredentials
	}

	g.mu.Lock()
	client, ok := g.clients[target]
	if !ok {
		client = resty.New().SetBaseURL(target).SetTimeout(g.timeout)
		g.clients[target] = client
		g.breakers[target] = circuitbreaker.New[*resty.Response](target)
	}
	breaker := g.breakers[target]
	g.mu.Unlock()

	req := client.R()
	if creds.Authorization != "" {
		req.SetHeader("Authorization", creds.Authorization)
	}
	if creds.Cookie != "" {
		req.SetHeader("Cookie", creds.Cookie)
	}

	return &Call{request: req, breaker: breaker, target: target}, nil
}

// Call is a single prepared outbound request.
type Call struct {
	request *resty.Request
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	target  string
}

// Get performs a GET and decodes a 2xx JSON body into result.
func (c *Call) Get(ctx context.Context, path string, result interface{}) error {
	return c.execute(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST with a JSON body and decodes a 2xx JSON body into result.
func (c *Call) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.execute(ctx, http.MethodPost, path, body, result)
}

func (c *Call) execute(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.request.SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	// 5xx responses count as breaker failures; 4xx are the caller's problem
	// and must not trip the breaker for everyone else.
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("returned %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s %s%s: %v", ErrUpstream, method, c.target, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s %s%s returned %s", ErrUpstream, method, c.target, path, resp.Status())
	}
	return nil
}

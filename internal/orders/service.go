package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elonaire/templates-backend/internal/cart"
	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/identity"
)

var (
	// ErrEmptyCart means checkout was attempted with no open cart or a cart
	// with no line items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNotOrderOwner means the caller is neither the order's buyer nor a
	// trusted service identity.
	ErrNotOrderOwner = errors.New("order does not belong to caller")
)

type cartService interface {
	ClaimForOwner(ctx context.Context, sessionID, ownerID string) (cart.Cart, error)
	GetCartProducts(ctx context.Context, cartID string) ([]cart.LineItem, error)
}

type identityResolver interface {
	Resolve(ctx context.Context, table, externalKey string) (identity.Resolution, error)
	ExternalKey(ctx context.Context, table, localID string) (string, error)
}

type authClient interface {
	CheckAuth(ctx context.Context, creds gateway.Credentials) (clients.AuthStatus, error)
	GetUserEmail(ctx context.Context, creds gateway.Credentials, externalUserID string) (string, error)
}

type paymentsClient interface {
	InitiatePayment(ctx context.Context, creds gateway.Credentials, details clients.UserPaymentDetails) (clients.InitializePaymentData, error)
}

// Orchestrator runs checkout and the settlement-facing order operations.
type Orchestrator struct {
	repo           Repository
	carts          cartService
	ids            identityResolver
	auth           authClient
	payments       paymentsClient
	serviceSubject string
	log            *slog.Logger
}

func NewOrchestrator(repo Repository, carts cartService, ids identityResolver, auth authClient, payments paymentsClient, serviceSubject string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:           repo,
		carts:          carts,
		ids:            ids,
		auth:           auth,
		payments:       payments,
		serviceSubject: serviceSubject,
		log:            log,
	}
}

// CreateOrder converts the caller's open cart into a Pending order and
// initiates a provider transaction referenced by the order id, returning the
// provider's authorization URL. A failure after the order exists leaves it
// Pending; the caller retries checkout and initiation reuses that order.
func (o *Orchestrator) CreateOrder(ctx context.Context, creds gateway.Credentials, sessionID string) (string, error) {
	status, err := o.requireAuth(ctx, creds)
	if err != nil {
		return "", err
	}

	buyer, err := o.ids.Resolve(ctx, identity.TableUser, status.Sub)
	if err != nil {
		return "", err
	}

	c, err := o.carts.ClaimForOwner(ctx, sessionID, buyer.LocalID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return "", ErrEmptyCart
		}
		return "", err
	}
	items, err := o.carts.GetCartProducts(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	order, err := o.repo.CreateOrder(ctx, Order{BuyerID: buyer.LocalID, CartID: c.ID, Status: StatusPending})
	if errors.Is(err, ErrCartAlreadyOrdered) {
		// A previous checkout attempt created the order but initiation never
		// completed; reuse it.
		order, err = o.repo.GetOrderByCart(ctx, c.ID)
	}
	if err != nil {
		return "", err
	}

	email, err := o.auth.GetUserEmail(ctx, creds, status.Sub)
	if err != nil {
		return "", fmt.Errorf("resolving buyer email: %w", err)
	}

	init, err := o.payments.InitiatePayment(ctx, creds, clients.UserPaymentDetails{
		Email:     email,
		Amount:    c.TotalAmount,
		Reference: order.ID,
	})
	if err != nil {
		return "", fmt.Errorf("initiating payment for order %s: %w", order.ID, err)
	}
	return init.AuthorizationURL, nil
}

// UpdateOrder moves an order to a new status on behalf of its buyer or a
// trusted service identity. Confirmed additionally archives the cart and is
// idempotent. Returns the applied status as text.
func (o *Orchestrator) UpdateOrder(ctx context.Context, creds gateway.Credentials, orderID, statusText string) (string, error) {
	newStatus, err := ParseStatus(statusText)
	if err != nil {
		return "", err
	}

	order, err := o.repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if err := o.authorizeOrderAccess(ctx, creds, order); err != nil {
		return "", err
	}

	if newStatus == StatusConfirmed {
		if err := o.repo.ConfirmOrder(ctx, orderID); err != nil {
			return "", err
		}
	} else {
		if err := o.repo.UpdateStatus(ctx, orderID, newStatus); err != nil {
			return "", err
		}
	}
	return string(newStatus), nil
}

// GetAllArtifactsForOrder walks order → cart → line items and returns the
// captured artifact references together with the buyer's external user key.
func (o *Orchestrator) GetAllArtifactsForOrder(ctx context.Context, creds gateway.Credentials, orderID string) (ArtifactsPurchase, error) {
	order, err := o.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ArtifactsPurchase{}, err
	}
	if err := o.authorizeOrderAccess(ctx, creds, order); err != nil {
		return ArtifactsPurchase{}, err
	}

	items, err := o.carts.GetCartProducts(ctx, order.CartID)
	if err != nil {
		return ArtifactsPurchase{}, err
	}
	buyerKey, err := o.ids.ExternalKey(ctx, identity.TableUser, order.BuyerID)
	if err != nil {
		return ArtifactsPurchase{}, err
	}

	artifacts := make([]string, 0, len(items))
	for _, li := range items {
		artifacts = append(artifacts, li.ArtifactRef)
	}
	return ArtifactsPurchase{BuyerExternalID: buyerKey, Artifacts: artifacts}, nil
}

// ListOrders returns the caller's order history, newest first.
func (o *Orchestrator) ListOrders(ctx context.Context, creds gateway.Credentials) ([]Order, error) {
	status, err := o.requireAuth(ctx, creds)
	if err != nil {
		return nil, err
	}
	buyer, err := o.ids.Resolve(ctx, identity.TableUser, status.Sub)
	if err != nil {
		return nil, err
	}
	return o.repo.ListOrdersByBuyer(ctx, buyer.LocalID)
}

func (o *Orchestrator) requireAuth(ctx context.Context, creds gateway.Credentials) (clients.AuthStatus, error) {
	if creds.Empty() {
		return clients.AuthStatus{}, clients.ErrNotAuthenticated
	}
	status, err := o.auth.CheckAuth(ctx, creds)
	if err != nil {
		return clients.AuthStatus{}, err
	}
	if !status.IsAuth {
		return clients.AuthStatus{}, clients.ErrNotAuthenticated
	}
	return status, nil
}

func (o *Orchestrator) authorizeOrderAccess(ctx context.Context, creds gateway.Credentials, order Order) error {
	status, err := o.requireAuth(ctx, creds)
	if err != nil {
		return err
	}
	if status.Sub == o.serviceSubject {
		return nil
	}
	caller, err := o.ids.Resolve(ctx, identity.TableUser, status.Sub)
	if err != nil {
		return err
	}
	if caller.LocalID != order.BuyerID {
		return ErrNotOrderOwner
	}
	return nil
}

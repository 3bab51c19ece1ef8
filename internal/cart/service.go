package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/identity"
)

var ErrInvalidOperation = errors.New("invalid cart operation")

type identityResolver interface {
	Resolve(ctx context.Context, table, externalKey string) (identity.Resolution, error)
}

type authChecker interface {
	CheckAuth(ctx context.Context, creds gateway.Credentials) (clients.AuthStatus, error)
}

type catalogClient interface {
	GetProductPrice(ctx context.Context, externalProductID string) (int64, error)
	GetLicensePriceFactor(ctx context.Context, externalLicenseID string) (int64, error)
	GetProductArtifact(ctx context.Context, creds gateway.Credentials, externalProductID, externalLicenseID string) (string, error)
}

// Manager drives the cart lifecycle. Carts exist for anonymous sessions;
// authentication is best-effort here and only upgrades a session cart to an
// owned one.
type Manager struct {
	repo    Repository
	ids     identityResolver
	auth    authChecker
	catalog catalogClient
	log     *slog.Logger
}

func NewManager(repo Repository, ids identityResolver, auth authChecker, catalog catalogClient, log *slog.Logger) *Manager {
	return &Manager{repo: repo, ids: ids, auth: auth, catalog: catalog, log: log}
}

// CreateOrUpdateCart applies one add/remove mutation for the caller's cart,
// creating the cart on first add. It returns the resulting cart and the
// session id the caller must keep (freshly minted when none was supplied).
func (m *Manager) CreateOrUpdateCart(ctx context.Context, creds gateway.Credentials, sessionID, extProductID, extLicenseID string, op Operation) (Cart, string, error) {
	if op != OpAdd && op != OpRemove {
		return Cart{}, sessionID, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	product, err := m.ids.Resolve(ctx, identity.TableProduct, extProductID)
	if err != nil {
		return Cart{}, sessionID, err
	}
	license, err := m.ids.Resolve(ctx, identity.TableLicense, extLicenseID)
	if err != nil {
		return Cart{}, sessionID, err
	}

	price, err := m.catalog.GetProductPrice(ctx, extProductID)
	if err != nil {
		return Cart{}, sessionID, fmt.Errorf("fetching product price: %w", err)
	}
	factor, err := m.catalog.GetLicensePriceFactor(ctx, extLicenseID)
	if err != nil {
		return Cart{}, sessionID, fmt.Errorf("fetching license factor: %w", err)
	}

	ownerID := m.resolveOwner(ctx, creds)

	cur, err := m.locateCart(ctx, ownerID, sessionID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return Cart{}, sessionID, err
	}
	noCart := errors.Is(err, ErrCartNotFound)

	switch op {
	case OpAdd:
		artifact, err := m.catalog.GetProductArtifact(ctx, creds, extProductID, extLicenseID)
		if err != nil {
			return Cart{}, sessionID, fmt.Errorf("fetching product artifact: %w", err)
		}
		item := LineItem{
			ProductID:    product.LocalID,
			LicenseID:    license.LocalID,
			ExtProductID: extProductID,
			Quantity:     1,
			UnitPrice:    price,
			PriceFactor:  factor,
			ArtifactRef:  artifact,
		}

		if noCart {
			created, err := m.repo.CreateCartWithItem(ctx, Cart{
				OwnerID:     ownerID,
				SessionID:   sessionID,
				TotalAmount: item.Contribution(),
			}, item)
			if err != nil {
				return Cart{}, sessionID, err
			}
			return created, sessionID, nil
		}

		existing, err := m.repo.GetLineItem(ctx, cur.ID, product.LocalID)
		switch {
		case err == nil:
			// Re-adding swaps the license: the captured contribution leaves
			// the total and the freshly priced one enters.
			item.CartID = cur.ID
			item.Quantity = existing.Quantity
			delta := item.Contribution() - existing.Contribution()
			if err := m.repo.ReplaceItemLicense(ctx, item, delta); err != nil {
				return Cart{}, sessionID, err
			}
		case errors.Is(err, ErrItemNotFound):
			item.CartID = cur.ID
			if err := m.repo.AddItem(ctx, item); err != nil {
				return Cart{}, sessionID, err
			}
		default:
			return Cart{}, sessionID, err
		}

	case OpRemove:
		if noCart {
			return Cart{}, sessionID, ErrCartNotFound
		}
		existing, err := m.repo.GetLineItem(ctx, cur.ID, product.LocalID)
		if err != nil {
			return Cart{}, sessionID, err
		}
		if err := m.repo.RemoveItem(ctx, cur.ID, product.LocalID, -existing.Contribution()); err != nil {
			return Cart{}, sessionID, err
		}
	}

	updated, err := m.locateCart(ctx, ownerID, sessionID)
	if err != nil {
		return Cart{}, sessionID, err
	}
	return updated, sessionID, nil
}

// GetCart returns the open cart bound to a session, if any.
func (m *Manager) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	return m.repo.GetOpenCartBySession(ctx, sessionID)
}

// GetCartProducts returns the line items of a cart; settlement walks these
// for captured artifact references.
func (m *Manager) GetCartProducts(ctx context.Context, cartID string) ([]LineItem, error) {
	if _, err := m.repo.GetCart(ctx, cartID); err != nil {
		return nil, err
	}
	return m.repo.GetLineItems(ctx, cartID)
}

// ClaimForOwner re-parents any open session cart onto the owner and returns
// the owner's open cart. Checkout uses this so guest carts convert even when
// login happened after the last cart mutation.
func (m *Manager) ClaimForOwner(ctx context.Context, sessionID, ownerID string) (Cart, error) {
	if sessionID != "" {
		if err := m.repo.ClaimSessionCart(ctx, sessionID, ownerID); err != nil {
			return Cart{}, err
		}
	}
	return m.repo.GetOpenCartByOwner(ctx, ownerID)
}

// resolveOwner attempts to authenticate the caller. Anonymous callers are
// fine at this layer; only a confirmed identity claims the session cart.
func (m *Manager) resolveOwner(ctx context.Context, creds gateway.Credentials) string {
	if creds.Empty() {
		return ""
	}
	status, err := m.auth.CheckAuth(ctx, creds)
	if err != nil || !status.IsAuth {
		if err != nil {
			m.log.Debug("auth check failed, treating caller as anonymous", "error", err)
		}
		return ""
	}
	user, err := m.ids.Resolve(ctx, identity.TableUser, status.Sub)
	if err != nil {
		m.log.Warn("resolving authenticated user failed, treating caller as anonymous", "error", err)
		return ""
	}
	return user.LocalID
}

// locateCart prefers the owner's open cart, claiming the session cart first
// when the caller is authenticated.
func (m *Manager) locateCart(ctx context.Context, ownerID, sessionID string) (Cart, error) {
	if ownerID != "" {
		if err := m.repo.ClaimSessionCart(ctx, sessionID, ownerID); err != nil {
			return Cart{}, err
		}
		c, err := m.repo.GetOpenCartByOwner(ctx, ownerID)
		if err == nil || !errors.Is(err, ErrCartNotFound) {
			return c, err
		}
	}
	return m.repo.GetOpenCartBySession(ctx, sessionID)
}

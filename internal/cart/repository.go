package cart

import (
	"context"
	"errors"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

// Repository persists carts and their line items. Every mutation that moves
// the cart total runs in the same transaction as the line-item change.
type Repository interface {
	GetCart(ctx context.Context, cartID string) (Cart, error)
	GetOpenCartByOwner(ctx context.Context, ownerID string) (Cart, error)
	GetOpenCartBySession(ctx context.Context, sessionID string) (Cart, error)

	// ClaimSessionCart re-parents the open session cart onto ownerID. A no-op
	// when there is nothing to claim or the owner already has an open cart.
	ClaimSessionCart(ctx context.Context, sessionID, ownerID string) error

	GetLineItem(ctx context.Context, cartID, productID string) (LineItem, error)
	GetLineItems(ctx context.Context, cartID string) ([]LineItem, error)

	// CreateCartWithItem inserts the cart and its first line item together.
	CreateCartWithItem(ctx context.Context, c Cart, item LineItem) (Cart, error)

	// AddItem inserts a line item and adds its contribution to the total.
	AddItem(ctx context.Context, item LineItem) error

	// ReplaceItemLicense swaps the license captured on an existing line item
	// and applies totalDelta to the cart total.
	ReplaceItemLicense(ctx context.Context, item LineItem, totalDelta int64) error

	// RemoveItem deletes a line item and applies totalDelta to the total.
	RemoveItem(ctx context.Context, cartID, productID string, totalDelta int64) error
}

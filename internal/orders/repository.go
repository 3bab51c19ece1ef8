package orders

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrCartAlreadyOrdered means another order already references the cart.
	ErrCartAlreadyOrdered = errors.New("cart already has an order")
)

type Repository interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetOrderByCart(ctx context.Context, cartID string) (Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]Order, error)

	// ConfirmOrder moves the order to Confirmed and archives its cart in one
	// transaction. Confirming an already-Confirmed order is a no-op success.
	ConfirmOrder(ctx context.Context, orderID string) error

	UpdateStatus(ctx context.Context, orderID string, status Status) error
}

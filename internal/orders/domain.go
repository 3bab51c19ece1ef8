// Package orders converts priced carts into orders, initiates provider
// payments, and applies the settlement-driven Confirmed transition.
package orders

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusRefunded  Status = "Refunded"
	StatusOnHold    Status = "OnHold"
)

// ParseStatus validates a status received over the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusReady, StatusCompleted,
		StatusFailed, StatusRefunded, StatusOnHold:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Order is the buyer→cart edge. Exactly one order references a given cart;
// orders are never deleted.
type Order struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	CartID    string    `json:"cartId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArtifactsPurchase is what settlement needs to grant entitlements: the
// buyer's external user key and every artifact captured on the order's cart.
type ArtifactsPurchase struct {
	BuyerExternalID string   `json:"buyerId"`
	Artifacts       []string `json:"artifacts"`
}

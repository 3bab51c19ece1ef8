// Package cart owns the shopping-cart aggregate: anonymous session carts,
// claiming on sign-in, and line-item mutations with license-tier price
// recomputation.
package cart

import "time"

// Operation selects what a cart mutation does with the given product.
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
)

// Cart is the mutable aggregate. OwnerID is empty until the cart is claimed
// by an authenticated user; SessionID keys anonymous carts. TotalAmount is
// minor currency units and always equals the sum of line-item contributions.
type Cart struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	TotalAmount int64     `json:"totalAmount"`
	Archived    bool      `json:"archived"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LineItem is the cart→product edge. Unit price, license factor and the
// downloadable artifact reference are captured at add time, so settlement
// and later recomputation never re-query the catalog.
type LineItem struct {
	CartID       string `json:"cartId"`
	ProductID    string `json:"productId"`
	LicenseID    string `json:"licenseId"`
	ExtProductID string `json:"extProductId"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
	PriceFactor  int64  `json:"priceFactor"`
	ArtifactRef  string `json:"artifactRef"`
}

// Contribution is what this line adds to the cart total.
func (li LineItem) Contribution() int64 {
	return li.Quantity * li.UnitPrice * li.PriceFactor
}

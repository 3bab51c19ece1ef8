package payments

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Step is one recorded outcome of a settlement fan-out step.
type Step struct {
	Name  string    `bson:"name" json:"name"`
	OK    bool      `bson:"ok" json:"ok"`
	Error string    `bson:"error,omitempty" json:"error,omitempty"`
	At    time.Time `bson:"at" json:"at"`
}

// LedgerEntry records one webhook delivery and which settlement steps
// succeeded. The fan-out is non-transactional; this entry is what a
// reconciliation job would replay from.
type LedgerEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Reference string             `bson:"reference" json:"reference"`
	Event     string             `bson:"event" json:"event"`
	Steps     []Step             `bson:"steps" json:"steps"`
	Published bool               `bson:"published" json:"published"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Ledger interface {
	Record(ctx context.Context, entry LedgerEntry) error
	Unpublished(ctx context.Context, limit int64) ([]LedgerEntry, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID) error
}

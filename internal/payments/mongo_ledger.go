package payments

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ledgerCollection = "settlement_ledger"

type MongoLedger struct {
	col *mongo.Collection
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{col: db.Collection(ledgerCollection)}
}

func (l *MongoLedger) Record(ctx context.Context, entry LedgerEntry) error {
	if _, err := l.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("recording ledger entry: %w", err)
	}
	return nil
}

func (l *MongoLedger) Unpublished(ctx context.Context, limit int64) ([]LedgerEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)
	cur, err := l.col.Find(ctx, bson.M{"published": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying unpublished entries: %w", err)
	}
	defer cur.Close(ctx)

	var entries []LedgerEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decoding ledger entries: %w", err)
	}
	return entries, nil
}

func (l *MongoLedger) MarkPublished(ctx context.Context, id primitive.ObjectID) error {
	_, err := l.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"published": true}})
	if err != nil {
		return fmt.Errorf("marking ledger entry published: %w", err)
	}
	return nil
}

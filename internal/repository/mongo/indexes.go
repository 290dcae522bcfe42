package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes the owner, student and review queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		ownerListingsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "isBooked", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "listingId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		runsCollection: {
			{Keys: bson.D{{Key: "startedAt", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Reviews stores reviews in one collection keyed by listingId.
type Reviews struct {
	coll *mongo.Collection
}

func NewReviews(db *mongo.Database) *Reviews {
	return &Reviews{coll: db.Collection(reviewsCollection)}
}

func (r *Reviews) Add(ctx context.Context, listingID string, review model.Review) (model.Review, error) {
	review.ID = primitive.NewObjectID().Hex()
	review.ListingID = listingID
	if _, err := r.coll.InsertOne(ctx, review); err != nil {
		return model.Review{}, fmt.Errorf("insert review for %s: %w", listingID, err)
	}
	return review, nil
}

func (r *Reviews) List(ctx context.Context, listingID string) ([]model.Review, error) {
	cur, err := r.coll.Find(ctx, bson.M{"listingId": listingID})
	if err != nil {
		return nil, fmt.Errorf("find reviews of %s: %w", listingID, err)
	}
	out := []model.Review{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reviews of %s: %w", listingID, err)
	}
	return out, nil
}

func (r *Reviews) Watch(ctx context.Context, listingID string, fn func([]model.Review)) error {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.listingId": listingID}}}}
	stream, err := r.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("watch reviews of %s: %w", listingID, err)
	}
	defer stream.Close(context.Background())

	reviews, err := r.List(ctx, listingID)
	if err != nil {
		return err
	}
	fn(reviews)
	for stream.Next(ctx) {
		reviews, err := r.List(ctx, listingID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(reviews)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return stream.Err()
}

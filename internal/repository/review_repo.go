package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ReviewRepository stores reviews in each public listing's reviews subcollection.
type ReviewRepository struct {
	layout Layout
}

func NewReviewRepository(client *firestore.Client, appID string) *ReviewRepository {
	return &ReviewRepository{layout: NewLayout(client, appID)}
}

func (r *ReviewRepository) Add(ctx context.Context, listingID string, review model.Review) (model.Review, error) {
	ref := r.layout.Reviews(listingID).NewDoc()
	if _, err := ref.Create(ctx, review); err != nil {
		return model.Review{}, fmt.Errorf("create review for %s: %w", listingID, err)
	}
	review.ID = ref.ID
	review.ListingID = listingID
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, listingID string) ([]model.Review, error) {
	docs, err := r.layout.Reviews(listingID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list reviews of %s: %w", listingID, err)
	}
	return decodeReviews(listingID, docs)
}

func (r *ReviewRepository) Watch(ctx context.Context, listingID string, fn func([]model.Review)) error {
	it := r.layout.Reviews(listingID).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			return fmt.Errorf("watch reviews of %s: %w", listingID, err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read reviews snapshot: %w", err)
		}
		reviews, err := decodeReviews(listingID, docs)
		if err != nil {
			return err
		}
		fn(reviews)
	}
}

func decodeReviews(listingID string, docs []*firestore.DocumentSnapshot) ([]model.Review, error) {
	out := make([]model.Review, 0, len(docs))
	for _, doc := range docs {
		var rv model.Review
		if err := doc.DataTo(&rv); err != nil {
			return nil, fmt.Errorf("decode review %s: %w", doc.Ref.ID, err)
		}
		rv.ID = doc.Ref.ID
		rv.ListingID = listingID
		out = append(out, rv)
	}
	return out, nil
}

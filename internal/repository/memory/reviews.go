package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Reviews is an append-only in-memory review store.
type Reviews struct {
	mu      sync.RWMutex
	reviews map[string][]model.Review // listingId -> reviews
	hub     *hub
}

func NewReviews() *Reviews {
	return &Reviews{
		reviews: make(map[string][]model.Review),
		hub:     newHub(),
	}
}

func (r *Reviews) Add(ctx context.Context, listingID string, review model.Review) (model.Review, error) {
	if err := ctx.Err(); err != nil {
		return model.Review{}, err
	}
	review.ID = uuid.NewString()
	review.ListingID = listingID
	r.mu.Lock()
	r.reviews[listingID] = append(r.reviews[listingID], review)
	r.mu.Unlock()
	r.hub.notify()
	return review, nil
}

func (r *Reviews) List(ctx context.Context, listingID string) ([]model.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot(listingID), nil
}

func (r *Reviews) Watch(ctx context.Context, listingID string, fn func([]model.Review)) error {
	return r.hub.watch(ctx, func() {
		fn(r.snapshot(listingID))
	})
}

func (r *Reviews) snapshot(listingID string) []model.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Review, len(r.reviews[listingID]))
	copy(out, r.reviews[listingID])
	return out
}

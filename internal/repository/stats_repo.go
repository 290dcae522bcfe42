package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// StatsRepository manages the system/stats singleton document.
type StatsRepository struct {
	layout Layout
}

func NewStatsRepository(client *firestore.Client, appID string) *StatsRepository {
	return &StatsRepository{layout: NewLayout(client, appID)}
}

func (r *StatsRepository) SaveListingStats(ctx context.Context, stats model.ListingStats) error {
	if _, err := r.layout.Stats().Set(ctx, stats); err != nil {
		return fmt.Errorf("save listing stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) GetListingStats(ctx context.Context) (model.ListingStats, error) {
	snap, err := r.layout.Stats().Get(ctx)
	if err != nil {
		return model.ListingStats{}, fmt.Errorf("get listing stats: %w", err)
	}
	var stats model.ListingStats
	if err := snap.DataTo(&stats); err != nil {
		return model.ListingStats{}, fmt.Errorf("decode listing stats: %w", err)
	}
	return stats, nil
}

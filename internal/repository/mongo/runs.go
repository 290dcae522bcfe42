package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Runs stores reconcile runs keyed by run id.
type Runs struct {
	coll *mongo.Collection
}

func NewRuns(db *mongo.Database) *Runs {
	return &Runs{coll: db.Collection(runsCollection)}
}

func (r *Runs) CreateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	if _, err := r.coll.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("create run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *Runs) UpdateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": run.RunID}, run, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *Runs) GetRun(ctx context.Context, runID string) (model.ReconcileRun, error) {
	var run model.ReconcileRun
	err := r.coll.FindOne(ctx, bson.M{"_id": runID}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ReconcileRun{}, listing.ErrRunNotFound
	}
	if err != nil {
		return model.ReconcileRun{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

func (r *Runs) ListRuns(ctx context.Context, limit int) ([]model.ReconcileRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := []model.ReconcileRun{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return out, nil
}

// Stats stores the listing stats singleton as system/stats.
type Stats struct {
	coll *mongo.Collection
}

func NewStats(db *mongo.Database) *Stats {
	return &Stats{coll: db.Collection(systemCollection)}
}

func (s *Stats) SaveListingStats(ctx context.Context, stats model.ListingStats) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": "stats"}, stats, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save listing stats: %w", err)
	}
	return nil
}

func (s *Stats) GetListingStats(ctx context.Context) (model.ListingStats, error) {
	var stats model.ListingStats
	if err := s.coll.FindOne(ctx, bson.M{"_id": "stats"}).Decode(&stats); err != nil {
		return model.ListingStats{}, fmt.Errorf("get listing stats: %w", err)
	}
	return stats, nil
}

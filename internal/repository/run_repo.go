package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// RunRepository manages reconcile run lifecycle records.
type RunRepository struct {
	layout Layout
}

func NewRunRepository(client *firestore.Client, appID string) *RunRepository {
	return &RunRepository{layout: NewLayout(client, appID)}
}

func (r *RunRepository) CreateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	ref := r.layout.Runs().Doc(run.RunID)
	if _, err := ref.Set(ctx, run); err != nil {
		return fmt.Errorf("create run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *RunRepository) UpdateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	ref := r.layout.Runs().Doc(run.RunID)
	if _, err := ref.Set(ctx, run); err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (model.ReconcileRun, error) {
	snap, err := r.layout.Runs().Doc(runID).Get(ctx)
	if isNotFound(err) {
		return model.ReconcileRun{}, listing.ErrRunNotFound
	}
	if err != nil {
		return model.ReconcileRun{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	var run model.ReconcileRun
	if err := snap.DataTo(&run); err != nil {
		return model.ReconcileRun{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	if run.RunID == "" {
		run.RunID = snap.Ref.ID
	}
	return run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]model.ReconcileRun, error) {
	docs, err := r.layout.Runs().OrderBy("startedAt", firestore.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]model.ReconcileRun, 0, len(docs))
	for _, doc := range docs {
		var run model.ReconcileRun
		if err := doc.DataTo(&run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", doc.Ref.ID, err)
		}
		if run.RunID == "" {
			run.RunID = doc.Ref.ID
		}
		out = append(out, run)
	}
	return out, nil
}

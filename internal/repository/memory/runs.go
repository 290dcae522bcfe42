package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Runs keeps reconcile run records in memory.
type Runs struct {
	mu   sync.RWMutex
	runs map[string]model.ReconcileRun
}

func NewRuns() *Runs {
	return &Runs{runs: make(map[string]model.ReconcileRun)}
}

func (r *Runs) CreateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = run
	return nil
}

func (r *Runs) UpdateRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.runs[run.RunID]; ok && run.StartedAt.IsZero() {
		run.StartedAt = prev.StartedAt
	}
	r.runs[run.RunID] = run
	return nil
}

func (r *Runs) GetRun(ctx context.Context, runID string) (model.ReconcileRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return model.ReconcileRun{}, listing.ErrRunNotFound
	}
	return run, nil
}

func (r *Runs) ListRuns(ctx context.Context, limit int) ([]model.ReconcileRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ReconcileRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats keeps the listing stats singleton in memory.
type Stats struct {
	mu    sync.RWMutex
	stats *model.ListingStats
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) SaveListingStats(ctx context.Context, stats model.ListingStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
	return nil
}

func (s *Stats) GetListingStats(ctx context.Context) (model.ListingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return model.ListingStats{}, fmt.Errorf("get listing stats: not computed yet")
	}
	return *s.stats, nil
}

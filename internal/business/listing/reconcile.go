package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

const (
	maxErrorSamples   = 20
	maxRepairAttempts = 3
)

// Run statuses recorded on model.ReconcileRun.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// ReconcileOptions controls a reconcile pass.
type ReconcileOptions struct {
	DryRun  bool
	Workers int
}

// Drift describes how the two copies of one listing disagree.
type Drift int

const (
	InSync Drift = iota
	// Mismatch means both copies exist with different contents.
	Mismatch
	// MissingPublic means only the owner's copy exists.
	MissingPublic
	// OrphanPublic means only the public copy exists.
	OrphanPublic
)

func (d Drift) String() string {
	switch d {
	case Mismatch:
		return "mismatch"
	case MissingPublic:
		return "missing_public"
	case OrphanPublic:
		return "orphan_public"
	}
	return "in_sync"
}

// Pair is the private and public copy of one listing identifier.
type Pair struct {
	ID      string
	Private *model.Listing
	Public  *model.Listing
}

func (p Pair) Drift() Drift {
	switch {
	case p.Private != nil && p.Public == nil:
		return MissingPublic
	case p.Private == nil && p.Public != nil:
		return OrphanPublic
	case p.Private != nil && p.Public != nil && *p.Private != *p.Public:
		return Mismatch
	}
	return InSync
}

// Merged is the state both copies converge to: owner fields from the private
// copy and the moderation status from the public copy.
func (p Pair) Merged() model.Listing {
	merged := *p.Private
	merged.Status = p.Public.Status
	return merged
}

// repairOps returns the writes that bring the pair back in sync. Every op is
// conditional on the copies still being what the pair observed, so a write
// that lands after the pair was read makes the repair fail with ErrConflict
// instead of being overwritten.
func (p Pair) repairOps() []WriteOp {
	switch p.Drift() {
	case MissingPublic:
		return []WriteOp{
			AssertOp(PrivateRef(p.Private.OwnerID, p.ID), *p.Private),
			SetOp(PublicRef(p.ID), *p.Private).ExpectMissing(),
		}
	case OrphanPublic:
		ops := []WriteOp{DeleteOp(PublicRef(p.ID)).Expect(*p.Public)}
		if p.Public.OwnerID != "" {
			ops = append(ops, AssertMissingOp(PrivateRef(p.Public.OwnerID, p.ID)))
		}
		return ops
	case Mismatch:
		merged := p.Merged()
		private, public := PrivateRef(p.Private.OwnerID, p.ID), PublicRef(p.ID)
		ops := []WriteOp{AssertOp(private, *p.Private), AssertOp(public, *p.Public)}
		if merged != *p.Private {
			ops[0] = SetOp(private, merged).Expect(*p.Private)
		}
		if merged != *p.Public {
			ops[1] = SetOp(public, merged).Expect(*p.Public)
		}
		return ops
	}
	return nil
}

// refreshPair re-reads both copies of p.
func refreshPair(ctx context.Context, store Store, p Pair) (Pair, error) {
	fresh := Pair{ID: p.ID}
	pub, err := store.Get(ctx, PublicRef(p.ID))
	switch {
	case err == nil:
		fresh.Public = &pub
	case !errors.Is(err, ErrNotFound):
		return Pair{}, err
	}
	owner := ""
	switch {
	case p.Private != nil:
		owner = p.Private.OwnerID
	case fresh.Public != nil:
		owner = fresh.Public.OwnerID
	}
	if owner == "" {
		return fresh, nil
	}
	priv, err := store.Get(ctx, PrivateRef(owner, p.ID))
	switch {
	case err == nil:
		fresh.Private = &priv
	case !errors.Is(err, ErrNotFound):
		return Pair{}, err
	}
	return fresh, nil
}

// repair applies the pair's repair ops. When a copy changed since it was
// read, the pair is read again and the repair recomputed from the fresh
// copies. It returns the drift that was repaired.
func repair(ctx context.Context, store Store, p Pair) (Drift, error) {
	d := p.Drift()
	for attempt := 1; ; attempt++ {
		err := store.Apply(ctx, p.repairOps()...)
		if err == nil || !errors.Is(err, ErrConflict) || attempt == maxRepairAttempts {
			return d, err
		}
		if p, err = refreshPair(ctx, store, p); err != nil {
			return d, err
		}
		if d = p.Drift(); d == InSync {
			return d, nil
		}
	}
}

// Pairs loads every private and public copy and joins them by identifier.
func Pairs(ctx context.Context, store Store) ([]Pair, error) {
	var private, public []model.Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		private, err = store.List(gctx, Query{Collection: Private})
		if err != nil {
			return fmt.Errorf("list owner listings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		public, err = store.List(gctx, Query{Collection: Public})
		if err != nil {
			return fmt.Errorf("list public listings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*Pair, len(public))
	var order []string
	for i := range private {
		l := &private[i]
		p, ok := byID[l.ID]
		if !ok {
			p = &Pair{ID: l.ID}
			byID[l.ID] = p
			order = append(order, l.ID)
		}
		p.Private = l
	}
	for i := range public {
		l := &public[i]
		p, ok := byID[l.ID]
		if !ok {
			p = &Pair{ID: l.ID}
			byID[l.ID] = p
			order = append(order, l.ID)
		}
		p.Public = l
	}

	out := make([]Pair, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// Reconcile repairs drift between the two copies of every listing. In dry-run
// mode it only counts what it would change.
func Reconcile(ctx context.Context, store Store, logger *zap.Logger, opts ReconcileOptions) (model.ReconcileStats, []model.ErrorSample, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	pairs, err := Pairs(ctx, store)
	if err != nil {
		return model.ReconcileStats{}, nil, err
	}

	var (
		mu      sync.Mutex
		stats   model.ReconcileStats
		samples []model.ErrorSample
	)
	stats.Scanned = len(pairs)

	record := func(d Drift, err error, id string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.Failed++
			if len(samples) < maxErrorSamples {
				samples = append(samples, model.ErrorSample{ListingID: id, Reason: err.Error()})
			}
			return
		}
		switch d {
		case InSync:
			stats.InSync++
		case Mismatch:
			stats.Repaired++
		case MissingPublic:
			stats.Restored++
		case OrphanPublic:
			stats.Removed++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, p := range pairs {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d := p.Drift()
			if d == InSync || opts.DryRun {
				record(d, nil, p.ID)
				return nil
			}
			d, err := repair(gctx, store, p)
			if err != nil {
				logger.Warn("reconcile repair failed",
					zap.String("listingId", p.ID),
					zap.String("drift", d.String()),
					zap.Error(err))
			}
			record(d, err, p.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, samples, err
	}
	return stats, samples, nil
}

// RunReconcile executes a reconcile pass and records it as a run.
func (s *Service) RunReconcile(ctx context.Context, actor Actor, opts ReconcileOptions) (model.ReconcileRun, error) {
	if err := actor.requireAdmin(); err != nil {
		return model.ReconcileRun{}, err
	}
	run := model.ReconcileRun{
		RunID:     generateRunID(s.now()),
		Status:    RunRunning,
		DryRun:    opts.DryRun,
		StartedAt: s.now().UTC(),
	}
	if err := s.startRun(ctx, run); err != nil {
		return model.ReconcileRun{}, err
	}
	return s.execute(ctx, run, opts), nil
}

// StartReconcile records a new run and executes it in the background.
func (s *Service) StartReconcile(ctx context.Context, actor Actor, opts ReconcileOptions) (string, error) {
	if err := actor.requireAdmin(); err != nil {
		return "", err
	}
	if s.runs == nil {
		return "", errors.New("reconcile runs are not configured")
	}
	run := model.ReconcileRun{
		RunID:     generateRunID(s.now()),
		Status:    RunRunning,
		DryRun:    opts.DryRun,
		StartedAt: s.now().UTC(),
	}
	if err := s.startRun(ctx, run); err != nil {
		return "", err
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.execute(context.Background(), run, opts)
	}()
	return run.RunID, nil
}

// Wait blocks until background reconcile runs have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

func (s *Service) execute(ctx context.Context, run model.ReconcileRun, opts ReconcileOptions) model.ReconcileRun {
	if opts.Workers <= 0 {
		opts.Workers = s.workers
	}
	stats, samples, err := Reconcile(ctx, s.store, s.logger, opts)
	run.Stats = stats
	run.ErrorSample = samples
	run.FinishedAt = s.now().UTC()
	switch {
	case err != nil:
		run.Status = RunFailed
		if len(run.ErrorSample) < maxErrorSamples {
			run.ErrorSample = append(run.ErrorSample, model.ErrorSample{Reason: err.Error()})
		}
	case stats.Failed > 0:
		run.Status = RunPartial
	default:
		run.Status = RunSuccess
	}
	if !opts.DryRun && stats.Repaired+stats.Restored+stats.Removed > 0 {
		s.invalidate(ctx)
	}
	s.finishRun(ctx, run)
	s.logger.Info("reconcile finished",
		zap.String("runId", run.RunID),
		zap.String("status", run.Status),
		zap.Bool("dryRun", run.DryRun),
		zap.Int("scanned", stats.Scanned),
		zap.Int("repaired", stats.Repaired),
		zap.Int("restored", stats.Restored),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed))
	return run
}

func (s *Service) startRun(ctx context.Context, run model.ReconcileRun) error {
	if s.runs == nil {
		return nil
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("record reconcile run: %w", err)
	}
	return nil
}

func (s *Service) finishRun(ctx context.Context, run model.ReconcileRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Error("failed to finalize reconcile run", zap.String("runId", run.RunID), zap.Error(err))
	}
}

// GetRun returns a recorded reconcile run.
func (s *Service) GetRun(ctx context.Context, actor Actor, runID string) (model.ReconcileRun, error) {
	if err := actor.requireAdmin(); err != nil {
		return model.ReconcileRun{}, err
	}
	if s.runs == nil {
		return model.ReconcileRun{}, ErrRunNotFound
	}
	return s.runs.GetRun(ctx, runID)
}

// ListRuns returns the most recent reconcile runs, newest first.
func (s *Service) ListRuns(ctx context.Context, actor Actor, limit int) ([]model.ReconcileRun, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.runs.ListRuns(ctx, limit)
}

func generateRunID(now time.Time) string {
	return fmt.Sprintf("RECONCILE_%s_%s", now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// WriteHook is consulted before each write op. A non-nil error fails the op
// without applying it.
type WriteHook func(op listing.WriteOp) error

// Store keeps both listing collections in process memory. Apply checks every
// precondition first, then runs ops in order and stops at the first failure,
// leaving earlier ops committed.
type Store struct {
	mu      sync.RWMutex
	private map[string]map[string]model.Listing // ownerId -> id -> listing
	public  map[string]model.Listing
	hook    WriteHook
	hub     *hub
}

func NewStore() *Store {
	return &Store{
		private: make(map[string]map[string]model.Listing),
		public:  make(map[string]model.Listing),
		hub:     newHub(),
	}
}

// SetWriteHook installs a fault injector for tests. Pass nil to remove it.
func (s *Store) SetWriteHook(h WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

func (s *Store) NewID() string {
	return uuid.NewString()
}

func (s *Store) Get(ctx context.Context, ref listing.Ref) (model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return model.Listing{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lookup(ref)
	if !ok {
		return model.Listing{}, listing.ErrNotFound
	}
	return l, nil
}

func (s *Store) List(ctx context.Context, q listing.Query) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(q), nil
}

func (s *Store) Watch(ctx context.Context, q listing.Query, fn func([]model.Listing)) error {
	return s.hub.watch(ctx, func() {
		s.mu.RLock()
		out := s.query(q)
		s.mu.RUnlock()
		fn(out)
	})
}

func (s *Store) Apply(ctx context.Context, ops ...listing.WriteOp) error {
	if err := ctx.Err(); err != nil {
		return &listing.ApplyError{Index: 0, Err: err}
	}
	s.mu.Lock()
	for i, op := range ops {
		if !op.Conditional() {
			continue
		}
		current, found := s.lookup(op.Ref)
		if err := op.Check(current, found); err != nil {
			s.mu.Unlock()
			return &listing.ApplyError{Index: i, Err: err}
		}
	}
	applied, wrote := 0, false
	var failed error
	for i, op := range ops {
		if op.Kind == listing.OpAssert {
			applied++
			continue
		}
		if err := s.apply(op); err != nil {
			failed = &listing.ApplyError{Index: i, Applied: applied, Err: err}
			break
		}
		applied++
		wrote = true
	}
	s.mu.Unlock()
	if wrote {
		s.hub.notify()
	}
	return failed
}

func (s *Store) apply(op listing.WriteOp) error {
	if op.Ref.ID == "" {
		return errors.New("listing id is required")
	}
	if op.Ref.Collection == listing.Private && op.Ref.OwnerID == "" {
		return errors.New("owner id is required for owner listings")
	}
	if s.hook != nil {
		if err := s.hook(op); err != nil {
			return err
		}
	}
	switch op.Kind {
	case listing.OpSet:
		l := op.Listing
		l.ID = op.Ref.ID
		s.put(op.Ref, l)
	case listing.OpPatch:
		l, ok := s.lookup(op.Ref)
		if !ok {
			return listing.ErrNotFound
		}
		s.put(op.Ref, op.Patch.ApplyTo(l))
	case listing.OpDelete:
		if _, ok := s.lookup(op.Ref); !ok {
			return listing.ErrNotFound
		}
		s.remove(op.Ref)
	default:
		return fmt.Errorf("unknown write op %d", op.Kind)
	}
	return nil
}

func (s *Store) lookup(ref listing.Ref) (model.Listing, bool) {
	if ref.Collection == listing.Public {
		l, ok := s.public[ref.ID]
		return l, ok
	}
	l, ok := s.private[ref.OwnerID][ref.ID]
	return l, ok
}

func (s *Store) put(ref listing.Ref, l model.Listing) {
	if ref.Collection == listing.Public {
		s.public[ref.ID] = l
		return
	}
	owned, ok := s.private[ref.OwnerID]
	if !ok {
		owned = make(map[string]model.Listing)
		s.private[ref.OwnerID] = owned
	}
	owned[ref.ID] = l
}

func (s *Store) remove(ref listing.Ref) {
	if ref.Collection == listing.Public {
		delete(s.public, ref.ID)
		return
	}
	delete(s.private[ref.OwnerID], ref.ID)
}

func (s *Store) query(q listing.Query) []model.Listing {
	out := []model.Listing{}
	if q.Collection == listing.Public {
		for _, l := range s.public {
			if q.Matches(l) {
				out = append(out, l)
			}
		}
		return out
	}
	for owner, owned := range s.private {
		if q.OwnerID != "" && owner != q.OwnerID {
			continue
		}
		for _, l := range owned {
			if q.Matches(l) {
				out = append(out, l)
			}
		}
	}
	return out
}

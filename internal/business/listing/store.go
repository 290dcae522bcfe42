package listing

import (
	"context"
	"io"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Collection selects which copy of a listing a reference points at.
type Collection int

const (
	// Private is the per-owner ownerListings collection.
	Private Collection = iota
	// Public is the shared listings collection.
	Public
)

func (c Collection) String() string {
	if c == Private {
		return "ownerListings"
	}
	return "listings"
}

// Ref addresses one stored copy. OwnerID is required for Private refs.
type Ref struct {
	Collection Collection
	OwnerID    string
	ID         string
}

func PrivateRef(ownerID, id string) Ref { return Ref{Collection: Private, OwnerID: ownerID, ID: id} }
func PublicRef(id string) Ref           { return Ref{Collection: Public, ID: id} }

// Half reports which copy r refers to.
func (r Ref) Half() Half {
	if r.Collection == Private {
		return HalfPrivate
	}
	return HalfPublic
}

// Query is a collection scan with an optional single equality predicate.
// A Private query with an empty OwnerID spans every owner.
type Query struct {
	Collection Collection
	OwnerID    string
	Field      string
	Value      any
}

// Matches evaluates the equality predicate against a listing. Stores that
// cannot push the predicate down use it to filter in memory.
func (q Query) Matches(l model.Listing) bool {
	if q.Collection == Private && q.OwnerID != "" && l.OwnerID != q.OwnerID {
		return false
	}
	if q.Field == "" {
		return true
	}
	switch q.Field {
	case "status":
		return equalString(string(l.Status), q.Value)
	case "ownerId":
		return equalString(l.OwnerID, q.Value)
	case "isBooked":
		b, isBool := q.Value.(bool)
		return isBool && l.IsBooked == b
	case "location":
		return equalString(l.Location, q.Value)
	}
	return false
}

func equalString(have string, want any) bool {
	switch v := want.(type) {
	case string:
		return have == v
	case model.Status:
		return have == string(v)
	}
	return false
}

// OpKind is the type of a single write.
type OpKind int

const (
	OpSet OpKind = iota
	OpPatch
	OpDelete
	// OpAssert writes nothing; it only carries a precondition.
	OpAssert
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpPatch:
		return "patch"
	case OpAssert:
		return "assert"
	default:
		return "delete"
	}
}

// WriteOp is one write against one stored copy. Want and WantMissing are
// optional preconditions on the stored copy at the time of the write.
type WriteOp struct {
	Kind        OpKind
	Ref         Ref
	Listing     model.Listing
	Patch       model.ListingPatch
	Want        *model.Listing
	WantMissing bool
}

func SetOp(ref Ref, l model.Listing) WriteOp        { return WriteOp{Kind: OpSet, Ref: ref, Listing: l} }
func PatchOp(ref Ref, p model.ListingPatch) WriteOp { return WriteOp{Kind: OpPatch, Ref: ref, Patch: p} }
func DeleteOp(ref Ref) WriteOp                      { return WriteOp{Kind: OpDelete, Ref: ref} }

// AssertOp requires the copy at ref to equal l without writing it.
func AssertOp(ref Ref, l model.Listing) WriteOp {
	return WriteOp{Kind: OpAssert, Ref: ref}.Expect(l)
}

// AssertMissingOp requires the copy at ref to be absent.
func AssertMissingOp(ref Ref) WriteOp {
	return WriteOp{Kind: OpAssert, Ref: ref, WantMissing: true}
}

// Expect makes op conditional on the stored copy still equalling l.
func (op WriteOp) Expect(l model.Listing) WriteOp {
	op.Want = &l
	op.WantMissing = false
	return op
}

// ExpectMissing makes op conditional on the copy not existing yet.
func (op WriteOp) ExpectMissing() WriteOp {
	op.Want = nil
	op.WantMissing = true
	return op
}

// Conditional reports whether op carries a precondition.
func (op WriteOp) Conditional() bool {
	return op.Want != nil || op.WantMissing
}

// Check tests the precondition against what the store holds now. found is
// false when the copy does not exist. It returns ErrConflict on a mismatch.
func (op WriteOp) Check(current model.Listing, found bool) error {
	switch {
	case op.WantMissing:
		if found {
			return ErrConflict
		}
	case op.Want != nil:
		if !found {
			return ErrConflict
		}
		want := *op.Want
		want.ID, current.ID = op.Ref.ID, op.Ref.ID
		if want != current {
			return ErrConflict
		}
	}
	return nil
}

// Store persists listing copies.
//
// Apply executes ops in order. Patch and delete of a missing document fail
// with ErrNotFound. Preconditions are checked before the op writes; a stale
// one fails with ErrConflict. Failures are reported as *ApplyError.
//
// Watch delivers the full result set of q on subscription and after every
// change until ctx is cancelled, then returns ctx.Err().
type Store interface {
	Get(ctx context.Context, ref Ref) (model.Listing, error)
	List(ctx context.Context, q Query) ([]model.Listing, error)
	Watch(ctx context.Context, q Query, fn func([]model.Listing)) error
	Apply(ctx context.Context, ops ...WriteOp) error
	NewID() string
}

// ReviewStore persists the append-only reviews of each public listing.
type ReviewStore interface {
	Add(ctx context.Context, listingID string, r model.Review) (model.Review, error)
	List(ctx context.Context, listingID string) ([]model.Review, error)
	Watch(ctx context.Context, listingID string, fn func([]model.Review)) error
}

// BlobStore stores listing photos and returns a URL to fetch them.
type BlobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// RunStore persists reconcile run metadata.
type RunStore interface {
	CreateRun(ctx context.Context, run model.ReconcileRun) error
	UpdateRun(ctx context.Context, run model.ReconcileRun) error
	GetRun(ctx context.Context, runID string) (model.ReconcileRun, error)
	ListRuns(ctx context.Context, limit int) ([]model.ReconcileRun, error)
}

// StatsStore persists the listing stats singleton.
type StatsStore interface {
	SaveListingStats(ctx context.Context, stats model.ListingStats) error
	GetListingStats(ctx context.Context) (model.ListingStats, error)
}

// Invalidator drops cached read views after a successful mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListingRepository stores both listing copies in Firestore. Apply commits
// all ops in one transaction, so a dual write never leaves the copies apart.
type ListingRepository struct {
	client *firestore.Client
	layout Layout
}

func NewListingRepository(client *firestore.Client, appID string) *ListingRepository {
	return &ListingRepository{client: client, layout: NewLayout(client, appID)}
}

func (r *ListingRepository) doc(ref listing.Ref) *firestore.DocumentRef {
	if ref.Collection == listing.Private {
		return r.layout.OwnerListings(ref.OwnerID).Doc(ref.ID)
	}
	return r.layout.PublicListings().Doc(ref.ID)
}

// NewID reserves a fresh document identifier. Both copies share it.
func (r *ListingRepository) NewID() string {
	return r.layout.PublicListings().NewDoc().ID
}

func (r *ListingRepository) Get(ctx context.Context, ref listing.Ref) (model.Listing, error) {
	snap, err := r.doc(ref).Get(ctx)
	if isNotFound(err) {
		return model.Listing{}, listing.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get %s/%s: %w", ref.Collection, ref.ID, err)
	}
	return decodeListing(snap)
}

func (r *ListingRepository) List(ctx context.Context, q listing.Query) ([]model.Listing, error) {
	iter := r.query(q).Documents(ctx)
	defer iter.Stop()

	out := []model.Listing{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate %s: %w", q.Collection, err)
		}
		if !r.keep(q, doc) {
			continue
		}
		l, err := decodeListing(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Watch streams query snapshots until ctx is cancelled.
func (r *ListingRepository) Watch(ctx context.Context, q listing.Query, fn func([]model.Listing)) error {
	it := r.query(q).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			return fmt.Errorf("watch %s: %w", q.Collection, err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read %s snapshot: %w", q.Collection, err)
		}
		out := make([]model.Listing, 0, len(docs))
		for _, doc := range docs {
			if !r.keep(q, doc) {
				continue
			}
			l, err := decodeListing(doc)
			if err != nil {
				return err
			}
			out = append(out, l)
		}
		fn(out)
	}
}

func (r *ListingRepository) query(q listing.Query) firestore.Query {
	var base firestore.Query
	switch {
	case q.Collection == listing.Public:
		base = r.layout.PublicListings().Query
	case q.OwnerID != "":
		base = r.layout.OwnerListings(q.OwnerID).Query
	default:
		base = r.layout.AllOwnerListings().Query
	}
	if q.Field != "" {
		base = base.Where(q.Field, "==", q.Value)
	}
	return base
}

func (r *ListingRepository) keep(q listing.Query, doc *firestore.DocumentSnapshot) bool {
	if q.Collection == listing.Private && q.OwnerID == "" {
		return r.layout.InApp(doc.Ref)
	}
	return true
}

// Apply runs every op in a single transaction. Reads happen before writes,
// as Firestore requires, so a missing document or a stale precondition
// aborts the whole batch. Documents read here are guarded by the
// transaction: a concurrent commit to one of them retries the function.
func (r *ListingRepository) Apply(ctx context.Context, ops ...listing.WriteOp) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, op := range ops {
			if op.Kind == listing.OpSet && !op.Conditional() {
				continue
			}
			if err := r.check(tx, op); err != nil {
				return &listing.ApplyError{Index: i, Err: err}
			}
		}
		for i, op := range ops {
			ref := r.doc(op.Ref)
			var err error
			switch op.Kind {
			case listing.OpAssert:
				continue
			case listing.OpSet:
				err = tx.Set(ref, op.Listing)
			case listing.OpPatch:
				err = tx.Update(ref, toUpdates(op.Patch))
			case listing.OpDelete:
				err = tx.Delete(ref)
			default:
				err = fmt.Errorf("unknown write op %d", op.Kind)
			}
			if err != nil {
				return &listing.ApplyError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var ae *listing.ApplyError
	if errors.As(err, &ae) {
		return ae
	}
	return &listing.ApplyError{Index: 0, Err: fmt.Errorf("commit transaction: %w", err)}
}

func (r *ListingRepository) check(tx *firestore.Transaction, op listing.WriteOp) error {
	snap, err := tx.Get(r.doc(op.Ref))
	found := true
	if isNotFound(err) {
		if !op.Conditional() {
			return listing.ErrNotFound
		}
		found = false
	} else if err != nil {
		return err
	}
	var current model.Listing
	if found {
		if current, err = decodeListing(snap); err != nil {
			return err
		}
	}
	if err := op.Check(current, found); err != nil {
		return err
	}
	if !found && op.Kind != listing.OpSet && op.Kind != listing.OpAssert {
		return listing.ErrNotFound
	}
	return nil
}

func toUpdates(p model.ListingPatch) []firestore.Update {
	fields := p.Fields()
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	return updates
}

func decodeListing(doc *firestore.DocumentSnapshot) (model.Listing, error) {
	var l model.Listing
	if err := doc.DataTo(&l); err != nil {
		return model.Listing{}, fmt.Errorf("decode listing %s: %w", doc.Ref.ID, err)
	}
	l.ID = doc.Ref.ID
	return l, nil
}

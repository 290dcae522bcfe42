package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// Collection names, kept equal to the Firestore collection ids.
const (
	ownerListingsCollection = "ownerListings"
	listingsCollection      = "listings"
	reviewsCollection       = "reviews"
	runsCollection          = "reconcile_runs"
	systemCollection        = "system"
)

// Store keeps both listing copies in MongoDB. Ops are applied one at a time;
// a failure leaves earlier ops committed and reports how many were.
type Store struct {
	private *mongo.Collection
	public  *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		private: db.Collection(ownerListingsCollection),
		public:  db.Collection(listingsCollection),
	}
}

func (s *Store) NewID() string {
	return primitive.NewObjectID().Hex()
}

func (s *Store) target(ref listing.Ref) (*mongo.Collection, bson.M) {
	if ref.Collection == listing.Private {
		return s.private, bson.M{"_id": ref.ID, "ownerId": ref.OwnerID}
	}
	return s.public, bson.M{"_id": ref.ID}
}

func (s *Store) Get(ctx context.Context, ref listing.Ref) (model.Listing, error) {
	coll, filter := s.target(ref)
	var l model.Listing
	err := coll.FindOne(ctx, filter).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Listing{}, listing.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get %s/%s: %w", ref.Collection, ref.ID, err)
	}
	return l, nil
}

func (s *Store) List(ctx context.Context, q listing.Query) ([]model.Listing, error) {
	coll, filter := s.queryFilter(q)
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	out := []model.Listing{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
	}
	return out, nil
}

// Watch emits the query result, then re-runs it after every change event on
// the collection. Change streams need a replica set.
func (s *Store) Watch(ctx context.Context, q listing.Query, fn func([]model.Listing)) error {
	coll, _ := s.queryFilter(q)
	stream, err := coll.Watch(ctx, mongo.Pipeline{}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("watch %s: %w", q.Collection, err)
	}
	defer stream.Close(context.Background())

	emit := func() error {
		listings, err := s.List(ctx, q)
		if err != nil {
			return err
		}
		fn(listings)
		return nil
	}
	if err := emit(); err != nil {
		return err
	}
	for stream.Next(ctx) {
		if err := emit(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("watch %s: %w", q.Collection, err)
	}
	return nil
}

func (s *Store) queryFilter(q listing.Query) (*mongo.Collection, bson.M) {
	coll := s.public
	filter := bson.M{}
	if q.Collection == listing.Private {
		coll = s.private
		if q.OwnerID != "" {
			filter["ownerId"] = q.OwnerID
		}
	}
	if q.Field != "" {
		value := q.Value
		if st, ok := value.(model.Status); ok {
			value = string(st)
		}
		filter[q.Field] = value
	}
	return coll, filter
}

func (s *Store) Apply(ctx context.Context, ops ...listing.WriteOp) error {
	for i, op := range ops {
		if err := s.apply(ctx, op); err != nil {
			return &listing.ApplyError{Index: i, Applied: i, Err: err}
		}
	}
	return nil
}

// apply writes one op. A precondition is folded into the write filter so
// the check and the write happen in one server-side operation.
func (s *Store) apply(ctx context.Context, op listing.WriteOp) error {
	coll, filter := s.target(op.Ref)
	if op.Want != nil {
		filter = matchFilter(op.Ref, *op.Want)
	}
	switch op.Kind {
	case listing.OpAssert:
		return s.assert(ctx, op)
	case listing.OpSet:
		l := op.Listing
		l.ID = op.Ref.ID
		if op.Ref.Collection == listing.Private {
			l.OwnerID = op.Ref.OwnerID
		}
		switch {
		case op.WantMissing:
			_, err := coll.InsertOne(ctx, l)
			if mongo.IsDuplicateKeyError(err) {
				return listing.ErrConflict
			}
			return err
		case op.Want != nil:
			res, err := coll.ReplaceOne(ctx, filter, l)
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return listing.ErrConflict
			}
			return nil
		}
		_, err := coll.ReplaceOne(ctx, bson.M{"_id": op.Ref.ID}, l, options.Replace().SetUpsert(true))
		return err
	case listing.OpPatch:
		res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": op.Patch.Fields()})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return missing(op)
		}
		return nil
	case listing.OpDelete:
		res, err := coll.DeleteOne(ctx, filter)
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return missing(op)
		}
		return nil
	}
	return fmt.Errorf("unknown write op %d", op.Kind)
}

func (s *Store) assert(ctx context.Context, op listing.WriteOp) error {
	current, err := s.Get(ctx, op.Ref)
	found := true
	if errors.Is(err, listing.ErrNotFound) {
		found = false
	} else if err != nil {
		return err
	}
	return op.Check(current, found)
}

func missing(op listing.WriteOp) error {
	if op.Want != nil {
		return listing.ErrConflict
	}
	return listing.ErrNotFound
}

// matchFilter selects the document at ref only while every stored field
// still equals want.
func matchFilter(ref listing.Ref, want model.Listing) bson.M {
	filter := bson.M{
		"_id":         ref.ID,
		"title":       want.Title,
		"rent":        string(want.Rent),
		"amenities":   want.Amenities,
		"contactInfo": want.ContactInfo,
		"location":    want.Location,
		"photoUrl":    want.PhotoURL,
		"description": want.Description,
		"ownerId":     want.OwnerID,
		"isBooked":    want.IsBooked,
		"status":      string(want.Status),
		"timestamp":   want.Timestamp,
	}
	if ref.Collection == listing.Private {
		filter["ownerId"] = ref.OwnerID
	}
	return filter
}

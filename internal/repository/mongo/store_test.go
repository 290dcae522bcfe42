package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	platformmongo "github.com/weiwei-tsao/myroom/apps/api/internal/platform/mongo"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func TestStoreAgainstMongo(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := platformmongo.Connect(ctx, uri)
	require.NoError(t, err)
	db := client.Database("myroom_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = platformmongo.Close(client)
	})
	require.NoError(t, EnsureIndexes(ctx, db))

	s := NewStore(db)
	id := s.NewID()
	l := model.Listing{Title: "Room", Rent: "4000", OwnerID: "owner-1", Status: model.StatusPending}
	require.NoError(t, s.Apply(ctx,
		listing.SetOp(listing.PrivateRef("owner-1", id), l),
		listing.SetOp(listing.PublicRef(id), l),
	))

	priv, err := s.Get(ctx, listing.PrivateRef("owner-1", id))
	require.NoError(t, err)
	pub, err := s.Get(ctx, listing.PublicRef(id))
	require.NoError(t, err)
	assert.Equal(t, priv, pub)

	_, err = s.Get(ctx, listing.PrivateRef("owner-2", id))
	assert.ErrorIs(t, err, listing.ErrNotFound)

	title := "x"
	err = s.Apply(ctx,
		listing.PatchOp(listing.PublicRef(id), model.ListingPatch{Title: &title}),
		listing.PatchOp(listing.PrivateRef("owner-2", id), model.ListingPatch{Title: &title}),
	)
	var ae *listing.ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Applied)
	assert.ErrorIs(t, err, listing.ErrNotFound)

	pending, err := s.List(ctx, listing.Query{Collection: listing.Public, Field: "status", Value: model.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	reviews := NewReviews(db)
	_, err = reviews.Add(ctx, id, model.Review{Rating: 5, Comment: "great"})
	require.NoError(t, err)
	got, err := reviews.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestConditionalWritesAgainstMongo(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := platformmongo.Connect(ctx, uri)
	require.NoError(t, err)
	db := client.Database("myroom_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = platformmongo.Close(client)
	})

	s := NewStore(db)
	id := s.NewID()
	l := model.Listing{Title: "Room", Rent: "4000", OwnerID: "owner-1", Status: model.StatusApproved}
	require.NoError(t, s.Apply(ctx, listing.SetOp(listing.PublicRef(id), l)))

	err = s.Apply(ctx, listing.SetOp(listing.PublicRef(id), l).ExpectMissing())
	assert.ErrorIs(t, err, listing.ErrConflict)

	stale := l
	stale.Status = model.StatusPending
	err = s.Apply(ctx, listing.SetOp(listing.PublicRef(id), stale).Expect(stale))
	assert.ErrorIs(t, err, listing.ErrConflict)
	err = s.Apply(ctx, listing.AssertOp(listing.PublicRef(id), stale))
	assert.ErrorIs(t, err, listing.ErrConflict)

	rejected := l
	rejected.Status = model.StatusRejected
	require.NoError(t, s.Apply(ctx, listing.SetOp(listing.PublicRef(id), rejected).Expect(l)))
	got, err := s.Get(ctx, listing.PublicRef(id))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)

	err = s.Apply(ctx, listing.DeleteOp(listing.PublicRef(id)).Expect(l))
	assert.ErrorIs(t, err, listing.ErrConflict)
	require.NoError(t, s.Apply(ctx, listing.DeleteOp(listing.PublicRef(id)).Expect(rejected)))
}

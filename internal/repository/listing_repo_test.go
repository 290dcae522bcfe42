package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// newEmulatorClient connects to the Firestore emulator, skipping when it is not running.
func newEmulatorClient(t *testing.T) (*firestore.Client, string) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "demo-myroom")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, "test-" + uuid.NewString()[:8]
}

func TestListingRepositoryDualWrite(t *testing.T) {
	client, appID := newEmulatorClient(t)
	repo := NewListingRepository(client, appID)
	ctx := context.Background()

	id := repo.NewID()
	l := model.Listing{
		Title:     "Room near COEP",
		Rent:      "4000",
		Location:  "Pune",
		OwnerID:   "owner-1",
		Status:    model.StatusPending,
		Timestamp: time.Now().UnixMilli(),
	}
	require.NoError(t, repo.Apply(ctx,
		listing.SetOp(listing.PrivateRef("owner-1", id), l),
		listing.SetOp(listing.PublicRef(id), l),
	))

	priv, err := repo.Get(ctx, listing.PrivateRef("owner-1", id))
	require.NoError(t, err)
	pub, err := repo.Get(ctx, listing.PublicRef(id))
	require.NoError(t, err)
	assert.Equal(t, priv, pub)
	assert.Equal(t, id, pub.ID)

	approved := model.StatusApproved
	require.NoError(t, repo.Apply(ctx,
		listing.PatchOp(listing.PublicRef(id), model.ListingPatch{Status: &approved}),
		listing.PatchOp(listing.PrivateRef("owner-1", id), model.ListingPatch{Status: &approved}),
	))

	visible, err := repo.List(ctx, listing.Query{Collection: listing.Public, Field: "status", Value: "approved"})
	require.NoError(t, err)
	require.Len(t, visible, 1)

	all, err := repo.List(ctx, listing.Query{Collection: listing.Private})
	require.NoError(t, err)
	assert.Len(t, all, 1, "collection group must stay inside the app")
}

func TestListingRepositoryApplyIsAtomic(t *testing.T) {
	client, appID := newEmulatorClient(t)
	repo := NewListingRepository(client, appID)
	ctx := context.Background()

	id := repo.NewID()
	title := "changed"
	err := repo.Apply(ctx,
		listing.SetOp(listing.PrivateRef("owner-1", id), model.Listing{Title: "x", OwnerID: "owner-1"}),
		listing.PatchOp(listing.PublicRef(id), model.ListingPatch{Title: &title}),
	)
	var ae *listing.ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Index)
	assert.Zero(t, ae.Applied)
	assert.ErrorIs(t, err, listing.ErrNotFound)

	_, err = repo.Get(ctx, listing.PrivateRef("owner-1", id))
	assert.ErrorIs(t, err, listing.ErrNotFound)
}

func TestListingRepositoryPreconditions(t *testing.T) {
	client, appID := newEmulatorClient(t)
	repo := NewListingRepository(client, appID)
	ctx := context.Background()

	id := repo.NewID()
	l := model.Listing{Title: "Room", OwnerID: "owner-1", Status: model.StatusApproved}
	require.NoError(t, repo.Apply(ctx, listing.SetOp(listing.PublicRef(id), l)))

	rejected := l
	rejected.Status = model.StatusRejected
	err := repo.Apply(ctx,
		listing.SetOp(listing.PrivateRef("owner-1", id), rejected),
		listing.SetOp(listing.PublicRef(id), rejected).Expect(rejected),
	)
	var ae *listing.ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Index)
	assert.ErrorIs(t, err, listing.ErrConflict)
	_, err = repo.Get(ctx, listing.PrivateRef("owner-1", id))
	assert.ErrorIs(t, err, listing.ErrNotFound)

	err = repo.Apply(ctx, listing.SetOp(listing.PublicRef(id), l).ExpectMissing())
	assert.ErrorIs(t, err, listing.ErrConflict)

	require.NoError(t, repo.Apply(ctx,
		listing.AssertMissingOp(listing.PrivateRef("owner-1", id)),
		listing.SetOp(listing.PublicRef(id), rejected).Expect(l),
	))
	got, err := repo.Get(ctx, listing.PublicRef(id))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
}

func TestReviewRepository(t *testing.T) {
	client, appID := newEmulatorClient(t)
	repo := NewReviewRepository(client, appID)
	ctx := context.Background()

	added, err := repo.Add(ctx, "listing-1", model.Review{ReviewerID: "s1", Rating: 4, Comment: "nice"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	got, err := repo.List(ctx, "listing-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, added, got[0])
}

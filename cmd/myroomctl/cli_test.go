package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func seeded(t *testing.T, listings ...model.Listing) *backend.Stores {
	t.Helper()
	stores := backend.Memory()
	var ops []listing.WriteOp
	for _, l := range listings {
		ops = append(ops, listing.SetOp(listing.PrivateRef(l.OwnerID, l.ID), l))
	}
	require.NoError(t, stores.Listings.Apply(context.Background(), ops...))

	prev := openStores
	openStores = func(ctx context.Context, logger *zap.Logger) (*backend.Stores, error) {
		return stores, nil
	}
	t.Cleanup(func() { openStores = prev })
	return stores
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reconcileDryRun, reconcileWorkers, statsSave, cleanupDryRun = false, 5, false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func room(id string) model.Listing {
	return model.Listing{
		ID:          id,
		Title:       "Room " + id,
		Rent:        "4000",
		Amenities:   "WiFi",
		ContactInfo: "9876543210",
		Location:    "Pune",
		OwnerID:     "owner-1",
		Status:      model.StatusPending,
		Timestamp:   1718452800000,
	}
}

func TestReconcileCommandRestoresPublicCopy(t *testing.T) {
	stores := seeded(t, room("a"), room("b"))

	out, err := run(t, "reconcile", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY-RUN")
	_, err = stores.Listings.Get(context.Background(), listing.PublicRef("a"))
	assert.ErrorIs(t, err, listing.ErrNotFound)

	out, err = run(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "restored: 2")

	pub, err := stores.Listings.Get(context.Background(), listing.PublicRef("a"))
	require.NoError(t, err)
	assert.Equal(t, "Room a", pub.Title)
}

func TestModerateAndInspect(t *testing.T) {
	seeded(t, room("a"))
	_, err := run(t, "reconcile")
	require.NoError(t, err)

	out, err := run(t, "moderate", "a", "approved")
	require.NoError(t, err)
	assert.Contains(t, out, "is now approved")

	out, err = run(t, "inspect", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "drift: in_sync")
	assert.Contains(t, out, "needsCleanup: false")

	_, err = run(t, "inspect", "missing")
	assert.ErrorIs(t, err, listing.ErrNotFound)
}

func TestCleanupCommand(t *testing.T) {
	dirty := room("a")
	dirty.Title = "  <b>Sunny</b>   room "
	stores := seeded(t, dirty, room("b"))
	_, err := run(t, "reconcile")
	require.NoError(t, err)

	out, err := run(t, "cleanup", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would clean a")

	out, err = run(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 2, dirty 1, cleaned 1, failed 0")

	for _, ref := range []listing.Ref{listing.PrivateRef("owner-1", "a"), listing.PublicRef("a")} {
		l, err := stores.Listings.Get(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "Sunny room", l.Title)
	}
}

func TestStatsCommand(t *testing.T) {
	seeded(t, room("a"))
	_, err := run(t, "reconcile")
	require.NoError(t, err)

	out, err := run(t, "stats", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "total:    1")
	assert.Contains(t, out, "pending:  1")
}

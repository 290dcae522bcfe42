package listing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.Status
		ok       bool
	}{
		{from: model.StatusPending, to: model.StatusApproved, ok: true},
		{from: model.StatusPending, to: model.StatusRejected, ok: true},
		{from: model.StatusApproved, to: model.StatusRejected, ok: true},
		{from: model.StatusRejected, to: model.StatusApproved, ok: true},
		{from: model.StatusApproved, to: model.StatusApproved, ok: true},
		{from: model.StatusApproved, to: model.StatusPending, ok: false},
		{from: model.StatusPending, to: "archived", ok: false},
		{from: "archived", to: model.StatusApproved, ok: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestVisible(t *testing.T) {
	assert.True(t, Visible(model.Listing{Status: model.StatusApproved}))
	assert.False(t, Visible(model.Listing{Status: model.StatusApproved, IsBooked: true}))
	assert.False(t, Visible(model.Listing{Status: model.StatusPending}))
	assert.False(t, Visible(model.Listing{Status: model.StatusRejected}))

	got := VisibleSet([]model.Listing{
		{ID: "a", Status: model.StatusApproved},
		{ID: "b", Status: model.StatusApproved, IsBooked: true},
		{ID: "c", Status: model.StatusPending},
		{ID: "d", Status: model.StatusApproved},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestIsNew(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	assert.True(t, IsNew(model.Listing{Timestamp: now.Add(-6 * day).UnixMilli()}, now))
	assert.False(t, IsNew(model.Listing{Timestamp: now.Add(-8 * day).UnixMilli()}, now))
	assert.False(t, IsNew(model.Listing{Timestamp: now.Add(-7 * day).UnixMilli()}, now))
	assert.True(t, IsNew(model.Listing{Timestamp: now.Add(-7*day + time.Millisecond).UnixMilli()}, now))
	assert.False(t, IsNew(model.Listing{}, now))
}

func TestAverageRating(t *testing.T) {
	reviews := func(ratings ...int) []model.Review {
		out := make([]model.Review, len(ratings))
		for i, r := range ratings {
			out[i] = model.Review{Rating: r}
		}
		return out
	}
	assert.Equal(t, 4.0, AverageRating(reviews(3, 4, 5)))
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.7, AverageRating(reviews(5, 5, 4)))
	assert.Equal(t, 3.5, AverageRating(reviews(3, 4)))
}

func TestContacts(t *testing.T) {
	l := model.Listing{Title: "Sunny room", ContactInfo: "+91 98765-43210, owner@example.com, "}
	got := Contacts(l)
	require.Len(t, got, 2)
	assert.Equal(t, "+91 98765-43210", got[0].Value)
	assert.Contains(t, got[0].WhatsApp, "https://wa.me/919876543210?text=")
	assert.Contains(t, got[0].WhatsApp, "Sunny+room")
	assert.Equal(t, "owner@example.com", got[1].Value)
	assert.Empty(t, got[1].WhatsApp)

	assert.Equal(t, "", WhatsAppLink("ask at the gate", "x"))
}

func TestAggregateStats(t *testing.T) {
	stats := AggregateStats([]model.Listing{
		{OwnerID: "u1", Status: model.StatusApproved, Rent: "4000"},
		{OwnerID: "u1", Status: model.StatusApproved, Rent: "6000", IsBooked: true},
		{OwnerID: "u2", Status: model.StatusPending, Rent: "ask"},
		{OwnerID: "u2", Status: model.StatusRejected, Rent: "5000/month"},
	})
	assert.Equal(t, 4, stats.TotalListings)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Booked)
	assert.Equal(t, 1, stats.Visible)
	assert.Equal(t, 5000.0, stats.AvgRent)
	assert.Equal(t, map[string]int{"u1": 2, "u2": 2}, stats.ByOwner)

	empty := AggregateStats(nil)
	assert.Zero(t, empty.AvgRent)
}

func TestStreamRegistry(t *testing.T) {
	sr := NewStreamRegistry()
	cancelled := map[string]bool{}
	sr.Register("a", func() { cancelled["a"] = true })
	sr.Register("b", func() { cancelled["b"] = true })
	assert.Equal(t, 2, sr.Active())

	assert.True(t, sr.Cancel("a"))
	assert.False(t, sr.Cancel("a"))
	assert.True(t, cancelled["a"])

	sr.Register("c", func() { cancelled["c"] = true })
	sr.Unregister("c")
	assert.Equal(t, 1, sr.CancelAll())
	assert.True(t, cancelled["b"])
	assert.False(t, cancelled["c"])
	assert.Zero(t, sr.Active())
}

func TestWriteErrorMatching(t *testing.T) {
	cause := errors.New("unavailable")
	err := error(&WriteError{Op: "create", ListingID: "a", Half: HalfPublic, Diverged: true, Err: cause})
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "copies diverged")

	verr := error(&ValidationError{Fields: []string{"title"}, Reason: "required fields missing"})
	assert.ErrorIs(t, verr, ErrValidation)
}

func TestPairDrift(t *testing.T) {
	priv := model.Listing{ID: "a", OwnerID: "u1", Title: "New title", Status: model.StatusPending}
	pub := model.Listing{ID: "a", OwnerID: "u1", Title: "Old title", Status: model.StatusApproved}

	p := Pair{ID: "a", Private: &priv, Public: &pub}
	assert.Equal(t, Mismatch, p.Drift())
	merged := p.Merged()
	assert.Equal(t, "New title", merged.Title)
	assert.Equal(t, model.StatusApproved, merged.Status)
	ops := p.repairOps()
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.Equal(t, OpSet, op.Kind)
		require.NotNil(t, op.Want)
	}
	assert.Equal(t, priv, *ops[0].Want)
	assert.Equal(t, pub, *ops[1].Want)

	restore := Pair{ID: "a", Private: &priv}.repairOps()
	require.Len(t, restore, 2)
	assert.Equal(t, OpAssert, restore[0].Kind)
	assert.True(t, restore[1].WantMissing)

	orphan := Pair{ID: "a", Public: &pub}.repairOps()
	require.Len(t, orphan, 2)
	assert.Equal(t, OpDelete, orphan[0].Kind)
	assert.Equal(t, PrivateRef("u1", "a"), orphan[1].Ref)

	same := priv
	assert.Equal(t, InSync, Pair{ID: "a", Private: &priv, Public: &same}.Drift())
	assert.Equal(t, MissingPublic, Pair{ID: "a", Private: &priv}.Drift())
	assert.Equal(t, OrphanPublic, Pair{ID: "a", Public: &pub}.Drift())
}

func TestWriteOpCheck(t *testing.T) {
	l := model.Listing{ID: "a", OwnerID: "u1", Title: "Room", Status: model.StatusApproved}
	stored := l
	stored.ID = ""
	op := SetOp(PublicRef("a"), l).Expect(l)

	assert.NoError(t, op.Check(stored, true), "identifier is taken from the ref")
	assert.ErrorIs(t, op.Check(l, false), ErrConflict)
	changed := l
	changed.Status = model.StatusRejected
	assert.ErrorIs(t, op.Check(changed, true), ErrConflict)

	missing := SetOp(PublicRef("a"), l).ExpectMissing()
	assert.NoError(t, missing.Check(model.Listing{}, false))
	assert.ErrorIs(t, missing.Check(l, true), ErrConflict)

	assert.False(t, SetOp(PublicRef("a"), l).Conditional())
	assert.NoError(t, SetOp(PublicRef("a"), l).Check(changed, true))
	assert.Equal(t, "assert", AssertMissingOp(PublicRef("a")).Kind.String())
}

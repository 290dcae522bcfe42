package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/util"
)

// Actor is the caller of an operation. Admin is decided by the identity
// layer; the service never derives it from the user identifier.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) requireUser() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrAuthUnavailable
	}
	return nil
}

func (a Actor) requireAdmin() error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if !a.Admin {
		return ErrForbidden
	}
	return nil
}

// Deps wires the service to its collaborators. Listings and Reviews are required.
type Deps struct {
	Listings         Store
	Reviews          ReviewStore
	Blobs            BlobStore
	Runs             RunStore
	Stats            StatsStore
	Cache            Invalidator
	Logger           *zap.Logger
	Now              func() time.Time
	ReconcileWorkers int
}

// Service implements listing moderation, dual-write persistence and the
// student, owner and admin read views.
type Service struct {
	store   Store
	reviews ReviewStore
	blobs   BlobStore
	runs    RunStore
	stats   StatsStore
	cache   Invalidator
	logger  *zap.Logger
	now     func() time.Time
	workers int
	bg      sync.WaitGroup
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ReconcileWorkers <= 0 {
		d.ReconcileWorkers = 5
	}
	return &Service{
		store:   d.Listings,
		reviews: d.Reviews,
		blobs:   d.Blobs,
		runs:    d.Runs,
		stats:   d.Stats,
		cache:   d.Cache,
		logger:  d.Logger,
		now:     d.Now,
		workers: d.ReconcileWorkers,
	}
}

// Create stores a new pending listing owned by the actor in both collections.
func (s *Service) Create(ctx context.Context, actor Actor, draft model.ListingDraft) (model.Listing, error) {
	if err := actor.requireUser(); err != nil {
		return model.Listing{}, err
	}
	draft = util.CleanDraft(draft)
	if err := validateDraft(draft); err != nil {
		return model.Listing{}, err
	}

	l := model.Listing{
		ID:          s.store.NewID(),
		Title:       draft.Title,
		Rent:        draft.Rent,
		Amenities:   draft.Amenities,
		ContactInfo: draft.ContactInfo,
		Location:    draft.Location,
		PhotoURL:    draft.PhotoURL,
		Description: draft.Description,
		OwnerID:     actor.UserID,
		IsBooked:    false,
		Status:      model.StatusPending,
		Timestamp:   s.now().UnixMilli(),
	}

	if err := s.dualWrite(ctx, "create", l.ID,
		SetOp(PrivateRef(l.OwnerID, l.ID), l),
		SetOp(PublicRef(l.ID), l),
	); err != nil {
		return model.Listing{}, err
	}
	s.logger.Info("listing created", zap.String("listingId", l.ID), zap.String("ownerId", l.OwnerID))
	return l, nil
}

// Update overwrites the owner-editable fields. Status, booked flag, owner and
// creation time are never touched by an owner edit.
func (s *Service) Update(ctx context.Context, actor Actor, id string, draft model.ListingDraft) (model.Listing, error) {
	if err := actor.requireUser(); err != nil {
		return model.Listing{}, err
	}
	draft = util.CleanDraft(draft)
	if err := validateDraft(draft); err != nil {
		return model.Listing{}, err
	}
	patch := model.PatchFromDraft(draft)
	if err := s.dualWrite(ctx, "update", id,
		PatchOp(PrivateRef(actor.UserID, id), patch),
		PatchOp(PublicRef(id), patch),
	); err != nil {
		return model.Listing{}, err
	}
	s.logger.Info("listing updated", zap.String("listingId", id), zap.String("ownerId", actor.UserID))
	return s.store.Get(ctx, PrivateRef(actor.UserID, id))
}

// SetBooked marks a listing booked (hidden from students) or available again.
func (s *Service) SetBooked(ctx context.Context, actor Actor, id string, booked bool) (model.Listing, error) {
	if err := actor.requireUser(); err != nil {
		return model.Listing{}, err
	}
	patch := model.ListingPatch{IsBooked: &booked}
	if err := s.dualWrite(ctx, "book", id,
		PatchOp(PrivateRef(actor.UserID, id), patch),
		PatchOp(PublicRef(id), patch),
	); err != nil {
		return model.Listing{}, err
	}
	s.logger.Info("listing booking changed", zap.String("listingId", id), zap.Bool("isBooked", booked))
	return s.store.Get(ctx, PrivateRef(actor.UserID, id))
}

// Delete removes both copies of the actor's listing.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if err := actor.requireUser(); err != nil {
		return err
	}
	if err := s.dualWrite(ctx, "delete", id,
		DeleteOp(PrivateRef(actor.UserID, id)),
		DeleteOp(PublicRef(id)),
	); err != nil {
		return err
	}
	s.logger.Info("listing deleted", zap.String("listingId", id), zap.String("ownerId", actor.UserID))
	return nil
}

// SetStatus moves a listing to approved or rejected. The public copy is
// written first, then the owner's copy.
func (s *Service) SetStatus(ctx context.Context, actor Actor, id string, status model.Status) (model.Listing, error) {
	if err := actor.requireAdmin(); err != nil {
		return model.Listing{}, err
	}
	current, err := s.store.Get(ctx, PublicRef(id))
	if err != nil {
		return model.Listing{}, fmt.Errorf("load listing %s: %w", id, err)
	}
	if err := CanTransition(current.Status, status); err != nil {
		return model.Listing{}, err
	}
	patch := model.ListingPatch{Status: &status}
	if err := s.dualWrite(ctx, "moderate", id,
		PatchOp(PublicRef(id), patch),
		PatchOp(PrivateRef(current.OwnerID, id), patch),
	); err != nil {
		return model.Listing{}, err
	}
	s.logger.Info("listing status changed",
		zap.String("listingId", id),
		zap.String("from", string(current.Status)),
		zap.String("status", string(status)))
	current.Status = status
	return current, nil
}

// Get returns the public copy regardless of visibility.
func (s *Service) Get(ctx context.Context, id string) (model.Listing, error) {
	return s.store.Get(ctx, PublicRef(id))
}

// StudentListing returns the public copy only while it is visible to students.
func (s *Service) StudentListing(ctx context.Context, id string) (model.Listing, error) {
	l, err := s.store.Get(ctx, PublicRef(id))
	if err != nil {
		return model.Listing{}, err
	}
	if !Visible(l) {
		return model.Listing{}, ErrNotFound
	}
	return l, nil
}

// Detail is the student's view of a single listing.
type Detail struct {
	Listing       model.Listing  `json:"listing"`
	IsNew         bool           `json:"isNew"`
	Contacts      []Contact      `json:"contacts"`
	Reviews       []model.Review `json:"reviews"`
	AverageRating float64        `json:"averageRating"`
}

// StudentDetail loads a visible listing and its reviews concurrently.
func (s *Service) StudentDetail(ctx context.Context, id string) (Detail, error) {
	var (
		l       model.Listing
		reviews []model.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l, err = s.StudentListing(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviews.List(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	sortReviews(reviews)
	return Detail{
		Listing:       l,
		IsNew:         IsNew(l, s.now()),
		Contacts:      Contacts(l),
		Reviews:       reviews,
		AverageRating: AverageRating(reviews),
	}, nil
}

// Browse returns the student visibility set narrowed by c.
func (s *Service) Browse(ctx context.Context, c Criteria) ([]model.Listing, error) {
	listings, err := s.store.List(ctx, studentQuery())
	if err != nil {
		return nil, fmt.Errorf("list approved listings: %w", err)
	}
	return s.studentView(listings, c), nil
}

// WatchStudent re-evaluates the student view on every snapshot of approved
// listings until ctx is cancelled.
func (s *Service) WatchStudent(ctx context.Context, c Criteria, fn func([]model.Listing)) error {
	return s.store.Watch(ctx, studentQuery(), func(listings []model.Listing) {
		fn(s.studentView(listings, c))
	})
}

func (s *Service) studentView(listings []model.Listing, c Criteria) []model.Listing {
	out := Filter(VisibleSet(listings), c)
	sortNewestFirst(out)
	return out
}

// OwnerListings returns the actor's private copies.
func (s *Service) OwnerListings(ctx context.Context, actor Actor) ([]model.Listing, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	listings, err := s.store.List(ctx, ownerQuery(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	sortNewestFirst(listings)
	return listings, nil
}

// WatchOwner streams the actor's private copies.
func (s *Service) WatchOwner(ctx context.Context, actor Actor, fn func([]model.Listing)) error {
	if err := actor.requireUser(); err != nil {
		return err
	}
	return s.store.Watch(ctx, ownerQuery(actor.UserID), func(listings []model.Listing) {
		sortNewestFirst(listings)
		fn(listings)
	})
}

func ownerQuery(ownerID string) Query {
	return Query{Collection: Private, OwnerID: ownerID, Field: "ownerId", Value: ownerID}
}

// AdminListings returns public copies, optionally narrowed to one status.
// An empty status or "all" applies no filter.
func (s *Service) AdminListings(ctx context.Context, actor Actor, status string) ([]model.Listing, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	q, err := adminQuery(status)
	if err != nil {
		return nil, err
	}
	listings, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list admin listings: %w", err)
	}
	sortNewestFirst(listings)
	return listings, nil
}

// WatchAdmin streams public copies, optionally narrowed to one status.
func (s *Service) WatchAdmin(ctx context.Context, actor Actor, status string, fn func([]model.Listing)) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	q, err := adminQuery(status)
	if err != nil {
		return err
	}
	return s.store.Watch(ctx, q, func(listings []model.Listing) {
		sortNewestFirst(listings)
		fn(listings)
	})
}

func adminQuery(status string) (Query, error) {
	q := Query{Collection: Public}
	if status == "" || status == "all" {
		return q, nil
	}
	st := model.Status(status)
	if !st.Valid() {
		return Query{}, &ValidationError{Fields: []string{"status"}, Reason: fmt.Sprintf("unknown status %q", status)}
	}
	q.Field = "status"
	q.Value = status
	return q, nil
}

// SubmitReview appends a review to an existing public listing.
func (s *Service) SubmitReview(ctx context.Context, actor Actor, listingID string, rating int, comment string) (model.Review, error) {
	if err := actor.requireUser(); err != nil {
		return model.Review{}, err
	}
	comment = strings.TrimSpace(comment)
	if err := validateReview(rating, comment); err != nil {
		return model.Review{}, err
	}
	if _, err := s.store.Get(ctx, PublicRef(listingID)); err != nil {
		return model.Review{}, fmt.Errorf("review listing %s: %w", listingID, err)
	}
	r, err := s.reviews.Add(ctx, listingID, model.Review{
		ListingID:  listingID,
		ReviewerID: actor.UserID,
		Rating:     rating,
		Comment:    comment,
		Timestamp:  s.now().UnixMilli(),
	})
	if err != nil {
		return model.Review{}, fmt.Errorf("add review to %s: %w", listingID, err)
	}
	s.logger.Info("review submitted", zap.String("listingId", listingID), zap.Int("rating", rating))
	return r, nil
}

// Reviews returns the reviews of a listing, newest first.
func (s *Service) Reviews(ctx context.Context, listingID string) ([]model.Review, error) {
	reviews, err := s.reviews.List(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list reviews of %s: %w", listingID, err)
	}
	sortReviews(reviews)
	return reviews, nil
}

// OwnerReviews returns reviews for one of the actor's own listings.
func (s *Service) OwnerReviews(ctx context.Context, actor Actor, listingID string) ([]model.Review, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, PrivateRef(actor.UserID, listingID)); err != nil {
		return nil, fmt.Errorf("load listing %s: %w", listingID, err)
	}
	return s.Reviews(ctx, listingID)
}

// WatchReviews streams a listing's reviews, newest first.
func (s *Service) WatchReviews(ctx context.Context, listingID string, fn func([]model.Review)) error {
	return s.reviews.Watch(ctx, listingID, func(reviews []model.Review) {
		sortReviews(reviews)
		fn(reviews)
	})
}

// UploadPhoto stores an image under room_images/{owner}/ and returns its URL.
func (s *Service) UploadPhoto(ctx context.Context, actor Actor, fileName string, r io.Reader, contentType string) (string, error) {
	if err := actor.requireUser(); err != nil {
		return "", err
	}
	if s.blobs == nil {
		return "", errors.New("photo uploads are not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", &ValidationError{Fields: []string{"photo"}, Reason: fmt.Sprintf("content type %q is not an image", contentType)}
	}
	key := fmt.Sprintf("room_images/%s/%s_%d", actor.UserID, cleanFileName(fileName), s.now().UnixMilli())
	url, err := s.blobs.Upload(ctx, key, r, contentType)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	s.logger.Info("photo uploaded", zap.String("ownerId", actor.UserID), zap.String("key", key))
	return url, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if name == "" || name == "." || name == ".." {
		return "photo"
	}
	return name
}

// RefreshStats recomputes the admin dashboard counters from the public collection.
func (s *Service) RefreshStats(ctx context.Context, actor Actor) (model.ListingStats, error) {
	if err := actor.requireAdmin(); err != nil {
		return model.ListingStats{}, err
	}
	listings, err := s.store.List(ctx, Query{Collection: Public})
	if err != nil {
		return model.ListingStats{}, fmt.Errorf("list listings: %w", err)
	}
	stats := AggregateStats(listings)
	stats.LastUpdated = s.now().UTC()
	if s.stats != nil {
		if err := s.stats.SaveListingStats(ctx, stats); err != nil {
			return model.ListingStats{}, err
		}
	}
	return stats, nil
}

// Stats returns the last saved dashboard counters.
func (s *Service) Stats(ctx context.Context, actor Actor) (model.ListingStats, error) {
	if err := actor.requireAdmin(); err != nil {
		return model.ListingStats{}, err
	}
	if s.stats == nil {
		return s.RefreshStats(ctx, actor)
	}
	stats, err := s.stats.GetListingStats(ctx)
	if err != nil {
		s.logger.Debug("saved stats unavailable, recomputing", zap.Error(err))
		return s.RefreshStats(ctx, actor)
	}
	return stats, nil
}

// dualWrite applies a mutation to both copies. A failure is reported with
// the half that failed; nothing is rolled back or retried.
func (s *Service) dualWrite(ctx context.Context, op, id string, ops ...WriteOp) error {
	err := s.store.Apply(ctx, ops...)
	if err == nil {
		s.invalidate(ctx)
		return nil
	}

	we := &WriteError{Op: op, ListingID: id, Half: ops[0].Ref.Half(), Err: err}
	var ae *ApplyError
	if errors.As(err, &ae) {
		if ae.Index >= 0 && ae.Index < len(ops) {
			we.Half = ops[ae.Index].Ref.Half()
		}
		we.Diverged = ae.Applied > 0
		we.Err = ae.Err
	}
	if !we.Diverged && errors.Is(we.Err, ErrNotFound) {
		return fmt.Errorf("%s listing %s: %w", op, id, ErrNotFound)
	}
	if we.Diverged {
		s.invalidate(ctx)
		s.logger.Warn("listing copies diverged",
			zap.String("op", op),
			zap.String("listingId", id),
			zap.String("half", string(we.Half)),
			zap.Error(we.Err))
	} else {
		s.logger.Error("listing write failed",
			zap.String("op", op),
			zap.String("listingId", id),
			zap.String("half", string(we.Half)),
			zap.Error(we.Err))
	}
	return we
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func validateDraft(d model.ListingDraft) error {
	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.Rent == "" {
		missing = append(missing, "rent")
	}
	if d.Amenities == "" {
		missing = append(missing, "amenities")
	}
	if d.ContactInfo == "" {
		missing = append(missing, "contactInfo")
	}
	if d.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "required fields missing"}
	}
	return nil
}

func validateReview(rating int, comment string) error {
	var bad []string
	if rating < 1 || rating > 5 {
		bad = append(bad, "rating")
	}
	if comment == "" {
		bad = append(bad, "comment")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad, Reason: "a rating from 1 to 5 and a comment are required"}
	}
	return nil
}

func sortNewestFirst(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		if listings[i].Timestamp != listings[j].Timestamp {
			return listings[i].Timestamp > listings[j].Timestamp
		}
		return listings[i].ID < listings[j].ID
	})
}

func sortReviews(reviews []model.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		if reviews[i].Timestamp != reviews[j].Timestamp {
			return reviews[i].Timestamp > reviews[j].Timestamp
		}
		return reviews[i].ID < reviews[j].ID
	})
}

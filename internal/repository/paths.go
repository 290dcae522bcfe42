package repository

import (
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Layout resolves the legacy app's document paths under artifacts/{appId}.
type Layout struct {
	client *firestore.Client
	appID  string
}

func NewLayout(client *firestore.Client, appID string) Layout {
	return Layout{client: client, appID: appID}
}

func (l Layout) root() *firestore.DocumentRef {
	return l.client.Collection("artifacts").Doc(l.appID)
}

// OwnerListings is artifacts/{appId}/users/{ownerId}/ownerListings.
func (l Layout) OwnerListings(ownerID string) *firestore.CollectionRef {
	return l.root().Collection("users").Doc(ownerID).Collection("ownerListings")
}

// AllOwnerListings spans every owner's collection, across all apps. Use
// InApp to drop documents of other apps.
func (l Layout) AllOwnerListings() *firestore.CollectionGroupRef {
	return l.client.CollectionGroup("ownerListings")
}

// InApp reports whether an ownerListings document belongs to this app.
func (l Layout) InApp(ref *firestore.DocumentRef) bool {
	return strings.Contains(ref.Path, "/documents/artifacts/"+l.appID+"/users/")
}

// PublicListings is artifacts/{appId}/public/data/listings.
func (l Layout) PublicListings() *firestore.CollectionRef {
	return l.root().Collection("public").Doc("data").Collection("listings")
}

// Reviews is the reviews subcollection of a public listing.
func (l Layout) Reviews(listingID string) *firestore.CollectionRef {
	return l.PublicListings().Doc(listingID).Collection("reviews")
}

// Runs is artifacts/{appId}/reconcile_runs.
func (l Layout) Runs() *firestore.CollectionRef {
	return l.root().Collection("reconcile_runs")
}

// Stats is the artifacts/{appId}/system/stats singleton.
func (l Layout) Stats() *firestore.DocumentRef {
	return l.root().Collection("system").Doc("stats")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

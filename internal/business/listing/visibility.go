package listing

import "github.com/weiwei-tsao/myroom/apps/api/pkg/model"

// Visible reports whether a student may browse the listing.
func Visible(l model.Listing) bool {
	return l.Status == model.StatusApproved && !l.IsBooked
}

// VisibleSet keeps the visible listings in their original order.
func VisibleSet(listings []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if Visible(l) {
			out = append(out, l)
		}
	}
	return out
}

// studentQuery pushes the status half of the visibility predicate down to the store.
func studentQuery() Query {
	return Query{Collection: Public, Field: "status", Value: string(model.StatusApproved)}
}

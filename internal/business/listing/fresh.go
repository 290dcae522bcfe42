package listing

import (
	"time"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// NewListingWindow is how long a listing is badged as new after creation.
const NewListingWindow = 7 * 24 * time.Hour

// IsNew reports whether the listing was created within NewListingWindow of now.
// Listings without a timestamp are never new.
func IsNew(l model.Listing, now time.Time) bool {
	if l.Timestamp == 0 {
		return false
	}
	return l.Timestamp > now.Add(-NewListingWindow).UnixMilli()
}

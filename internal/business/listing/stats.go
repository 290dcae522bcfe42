package listing

import "github.com/weiwei-tsao/myroom/apps/api/pkg/model"

// AggregateStats reduces public listings into dashboard stats.
func AggregateStats(listings []model.Listing) model.ListingStats {
	var stats model.ListingStats
	var rentSum float64
	var rentCount int
	byOwner := make(map[string]int)

	for _, l := range listings {
		stats.TotalListings++
		switch l.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusApproved:
			stats.Approved++
		case model.StatusRejected:
			stats.Rejected++
		}
		if l.IsBooked {
			stats.Booked++
		}
		if Visible(l) {
			stats.Visible++
		}
		if amount, ok := l.Rent.Amount(); ok && amount > 0 {
			rentSum += float64(amount)
			rentCount++
		}
		if l.OwnerID != "" {
			byOwner[l.OwnerID]++
		}
	}

	if rentCount > 0 {
		stats.AvgRent = rentSum / float64(rentCount)
	}
	stats.ByOwner = byOwner
	return stats
}

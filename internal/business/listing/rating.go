package listing

import (
	"math"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// AverageRating is the mean rating rounded to one decimal, or 0 with no reviews.
func AverageRating(reviews []model.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return math.Round(avg*10) / 10
}

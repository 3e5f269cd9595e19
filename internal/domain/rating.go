package domain

import "fmt"

// Rating is a derived aggregate: the arithmetic mean and count of a set of
// review ratings. The zero value describes an empty set.
type Rating struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"review_count"`
}

// Aggregate computes the Rating of ratings. An empty set yields (0, 0).
func Aggregate(ratings []int) Rating {
	if len(ratings) == 0 {
		return Rating{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Rating{
		Average: float64(sum) / float64(len(ratings)),
		Count:   len(ratings),
	}
}

// ProviderRatingStrategy selects which reviews feed a provider's aggregate.
type ProviderRatingStrategy string

const (
	// StrategyOwnedServices averages the reviews of every service the
	// provider owns.
	StrategyOwnedServices ProviderRatingStrategy = "owned_services"
	// StrategyAuthoredReviews averages the reviews the provider wrote.
	StrategyAuthoredReviews ProviderRatingStrategy = "authored_reviews"
)

// ParseProviderRatingStrategy validates s.
func ParseProviderRatingStrategy(s string) (ProviderRatingStrategy, error) {
	switch ProviderRatingStrategy(s) {
	case StrategyOwnedServices, StrategyAuthoredReviews:
		return ProviderRatingStrategy(s), nil
	case "":
		return StrategyOwnedServices, nil
	}
	return "", fmt.Errorf("unknown provider rating strategy %q", s)
}

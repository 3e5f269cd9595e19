package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
)

// RatingChange is the outcome of a recomputation.
type RatingChange struct {
	ServiceID  string
	ProviderID string
	Service    domain.Rating
	Provider   domain.Rating
}

// RatingAggregator owns the derived rating aggregates of services and
// providers. Nothing else writes them.
type RatingAggregator struct {
	strategy domain.ProviderRatingStrategy
	logger   *slog.Logger
}

// NewRatingAggregator creates an aggregator using the given provider
// strategy.
func NewRatingAggregator(strategy domain.ProviderRatingStrategy, logger *slog.Logger) *RatingAggregator {
	return &RatingAggregator{strategy: strategy, logger: logger}
}

// Strategy returns the configured provider rating strategy.
func (a *RatingAggregator) Strategy() domain.ProviderRatingStrategy {
	return a.strategy
}

// Recompute rebuilds the aggregate of serviceID from all of its reviews and
// then the aggregate of its provider. It must run inside the caller's
// transaction while the service lock is held.
func (a *RatingAggregator) Recompute(ctx context.Context, repos repository.Repositories, serviceID string) (*RatingChange, error) {
	start := time.Now()
	defer func() { ratingRecomputeDuration.Observe(time.Since(start).Seconds()) }()

	svc, err := repos.Services.GetByIDForUpdate(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("lock service for recompute: %w", err)
	}

	ratings, err := repos.Reviews.RatingsByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service ratings: %w", err)
	}
	serviceRating := domain.Aggregate(ratings)
	if err := repos.Services.UpdateRating(ctx, serviceID, serviceRating); err != nil {
		return nil, fmt.Errorf("store service rating: %w", err)
	}

	if _, err := repos.Users.GetByIDForUpdate(ctx, svc.ProviderID); err != nil {
		return nil, fmt.Errorf("lock provider for recompute: %w", err)
	}

	var providerRatings []int
	switch a.strategy {
	case domain.StrategyAuthoredReviews:
		providerRatings, err = repos.Reviews.RatingsByReviewer(ctx, svc.ProviderID)
	default:
		providerRatings, err = repos.Reviews.RatingsByProvider(ctx, svc.ProviderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load provider ratings: %w", err)
	}
	providerRating := domain.Aggregate(providerRatings)
	if err := repos.Users.UpdateRating(ctx, svc.ProviderID, providerRating); err != nil {
		return nil, fmt.Errorf("store provider rating: %w", err)
	}

	a.logger.DebugContext(ctx, "ratings recomputed",
		slog.String("service_id", serviceID),
		slog.Float64("service_average", serviceRating.Average),
		slog.Int("service_count", serviceRating.Count),
		slog.String("provider_id", svc.ProviderID),
		slog.Float64("provider_average", providerRating.Average),
		slog.Int("provider_count", providerRating.Count),
		slog.String("strategy", string(a.strategy)),
	)

	return &RatingChange{
		ServiceID:  serviceID,
		ProviderID: svc.ProviderID,
		Service:    serviceRating,
		Provider:   providerRating,
	}, nil
}

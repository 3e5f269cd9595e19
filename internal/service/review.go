package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/lock"
	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// ReviewService implements the business logic for reviews. Every mutation
// holds the per-service lock for the whole transaction and recomputes the
// affected aggregates before committing.
type ReviewService struct {
	store      repository.Store
	locker     lock.Locker
	aggregator *RatingAggregator
	publisher  EventPublisher
	logger     *slog.Logger
	now        Clock
}

// NewReviewService creates a new review service.
func NewReviewService(
	store repository.Store,
	locker lock.Locker,
	aggregator *RatingAggregator,
	publisher EventPublisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		store:      store,
		locker:     locker,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
		now:        utcNow,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	RequestID string
	Rating    int
	Comment   string
}

// UpdateReviewInput holds the fields to change. Nil fields are left as is.
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

func validateRating(rating int) error {
	if !domain.ValidRating(rating) {
		return apperrors.Validation(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	return nil
}

func validateComment(comment string) error {
	if !domain.ValidComment(comment) {
		return apperrors.Validation(fmt.Sprintf("comment must be between %d and %d characters", domain.MinCommentLength, domain.MaxCommentLength))
	}
	return nil
}

// CreateReview records the customer's review of a completed request and
// recomputes the service and provider aggregates in the same transaction.
func (s *ReviewService) CreateReview(ctx context.Context, actor policy.Actor, input CreateReviewInput) (*domain.Review, error) {
	if strings.TrimSpace(input.RequestID) == "" {
		return nil, apperrors.Validation("request_id is required")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := validateComment(input.Comment); err != nil {
		return nil, err
	}

	req, err := s.store.Repositories().Requests.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if err := policy.Decide(actor, policy.CreateReview, policy.Resource{Request: req}).Err(); err != nil {
		return nil, err
	}

	release, err := acquireServiceLock(ctx, s.locker, req.ServiceID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		review *domain.Review
		change *RatingChange
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// Re-read under the lock; the request may have moved since.
		req, err := repos.Requests.GetByID(ctx, input.RequestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if err := policy.Decide(actor, policy.CreateReview, policy.Resource{Request: req}).Err(); err != nil {
			return err
		}
		if req.HasReview() {
			return apperrors.Conflict("request already has a review")
		}
		exists, err := repos.Reviews.ExistsByRequestID(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if exists {
			return apperrors.Conflict("request already has a review")
		}

		now := s.now()
		review = &domain.Review{
			ID:           uuid.New().String(),
			RequestID:    req.ID,
			ServiceID:    req.ServiceID,
			ReviewerID:   actor.ID,
			Rating:       input.Rating,
			Comment:      strings.TrimSpace(input.Comment),
			CreatedAt:    now,
			UpdatedAt:    now,
			ReviewerName: req.CustomerName,
			ServiceTitle: req.ServiceTitle,
		}
		if err := repos.Reviews.Create(ctx, review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		if err := repos.Requests.AttachReview(ctx, req.ID, review.ID); err != nil {
			return fmt.Errorf("attach review: %w", err)
		}

		change, err = s.aggregator.Recompute(ctx, repos, req.ServiceID)
		if err != nil {
			return fmt.Errorf("recompute ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reviewMutations.WithLabelValues("create").Inc()
	if err := s.publisher.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
	s.publishRatingChange(ctx, change)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("request_id", review.RequestID),
		slog.String("service_id", review.ServiceID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// UpdateReview changes the rating and/or comment of the actor's review.
func (s *ReviewService) UpdateReview(ctx context.Context, actor policy.Actor, id string, input UpdateReviewInput) (*domain.Review, error) {
	if input.Rating == nil && input.Comment == nil {
		return nil, apperrors.Validation("at least one of rating or comment is required")
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
	}
	if input.Comment != nil {
		if err := validateComment(*input.Comment); err != nil {
			return nil, err
		}
	}

	current, err := s.store.Repositories().Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if err := policy.Decide(actor, policy.UpdateReview, policy.Resource{Review: current}).Err(); err != nil {
		return nil, err
	}

	release, err := acquireServiceLock(ctx, s.locker, current.ServiceID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		review *domain.Review
		change *RatingChange
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		review, err = repos.Reviews.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if err := policy.Decide(actor, policy.UpdateReview, policy.Resource{Review: review}).Err(); err != nil {
			return err
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Comment != nil {
			review.Comment = strings.TrimSpace(*input.Comment)
		}
		review.UpdatedAt = s.now()

		if err := repos.Reviews.Update(ctx, review); err != nil {
			return fmt.Errorf("update review: %w", err)
		}

		change, err = s.aggregator.Recompute(ctx, repos, review.ServiceID)
		if err != nil {
			return fmt.Errorf("recompute ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reviewMutations.WithLabelValues("update").Inc()
	if err := s.publisher.PublishReviewUpdated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
	s.publishRatingChange(ctx, change)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("service_id", review.ServiceID),
	)
	return review, nil
}

// DeleteReview removes the actor's review, detaches it from its request and
// recomputes the aggregates.
func (s *ReviewService) DeleteReview(ctx context.Context, actor policy.Actor, id string) error {
	current, err := s.store.Repositories().Reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if err := policy.Decide(actor, policy.DeleteReview, policy.Resource{Review: current}).Err(); err != nil {
		return err
	}

	release, err := acquireServiceLock(ctx, s.locker, current.ServiceID)
	if err != nil {
		return err
	}
	defer release()

	var (
		review *domain.Review
		change *RatingChange
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		review, err = repos.Reviews.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if err := policy.Decide(actor, policy.DeleteReview, policy.Resource{Review: review}).Err(); err != nil {
			return err
		}

		if err := repos.Requests.DetachReview(ctx, review.RequestID); err != nil {
			return fmt.Errorf("detach review: %w", err)
		}
		if err := repos.Reviews.Delete(ctx, review.ID); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}

		change, err = s.aggregator.Recompute(ctx, repos, review.ServiceID)
		if err != nil {
			return fmt.Errorf("recompute ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	reviewMutations.WithLabelValues("delete").Inc()
	if err := s.publisher.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
	s.publishRatingChange(ctx, change)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("service_id", review.ServiceID),
	)
	return nil
}

// GetReview returns a review by id.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.store.Repositories().Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListByService returns the reviews of a service, newest first.
func (s *ReviewService) ListByService(ctx context.Context, serviceID string, page, perPage int) ([]domain.Review, int, error) {
	repos := s.store.Repositories()
	if _, err := repos.Services.GetByID(ctx, serviceID); err != nil {
		return nil, 0, fmt.Errorf("get service: %w", err)
	}

	page, perPage = normalizePage(page, perPage)
	reviews, total, err := repos.Reviews.ListByService(ctx, serviceID, repository.ReviewFilter{Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list service reviews: %w", err)
	}
	return reviews, total, nil
}

// ListByReviewer returns the reviews written by reviewerID, newest first.
func (s *ReviewService) ListByReviewer(ctx context.Context, reviewerID string, page, perPage int) ([]domain.Review, int, error) {
	if reviewerID == "" {
		return nil, 0, apperrors.Unauthenticated("authentication required")
	}

	page, perPage = normalizePage(page, perPage)
	reviews, total, err := s.store.Repositories().Reviews.ListByReviewer(ctx, reviewerID, repository.ReviewFilter{Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list reviewer reviews: %w", err)
	}
	return reviews, total, nil
}

func (s *ReviewService) publishRatingChange(ctx context.Context, change *RatingChange) {
	if change == nil {
		return
	}
	if err := s.publisher.PublishServiceRatingChanged(ctx, change.ServiceID, change.ProviderID, change.Service, change.Provider); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish service.rating_changed event",
			slog.String("service_id", change.ServiceID),
			slog.String("error", err.Error()),
		)
	}
}

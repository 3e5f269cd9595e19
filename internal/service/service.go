package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/lock"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
	"github.com/Lnando2k21/projetofinal/pkg/pagination"
)

// EventPublisher publishes domain events after their transaction commits.
// Publish failures are logged by the caller and never fail the operation.
type EventPublisher interface {
	PublishRequestCreated(ctx context.Context, req *domain.ServiceRequest) error
	PublishRequestStatusChanged(ctx context.Context, req *domain.ServiceRequest, oldStatus, actorID string) error
	PublishReviewCreated(ctx context.Context, rv *domain.Review) error
	PublishReviewUpdated(ctx context.Context, rv *domain.Review) error
	PublishReviewDeleted(ctx context.Context, rv *domain.Review) error
	PublishServiceRatingChanged(ctx context.Context, serviceID, providerID string, service, provider domain.Rating) error
}

// Clock returns the current time. Tests replace it to get stable timestamps.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// normalizePage clamps page and per-page to the pagination defaults.
func normalizePage(page, perPage int) (int, int) {
	p := pagination.Params{Page: page, PerPage: perPage}.Normalize()
	return p.Page, p.PerPage
}

// acquireServiceLock takes the per-service lock guarding rating aggregates.
func acquireServiceLock(ctx context.Context, l lock.Locker, serviceID string) (lock.Release, error) {
	start := time.Now()
	release, err := l.Acquire(ctx, lock.ServiceKey(serviceID))
	lockWaitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) && ctx.Err() == nil {
			return nil, apperrors.Conflict(fmt.Sprintf("service %s is being updated, try again", serviceID))
		}
		return nil, fmt.Errorf("acquire service lock: %w", err)
	}
	return release, nil
}

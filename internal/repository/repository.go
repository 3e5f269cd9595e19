package repository

import (
	"context"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
)

// ServiceFilter defines filter criteria for listing services.
type ServiceFilter struct {
	Category   *string
	Search     *string
	ProviderID *string
	ActiveOnly bool
	Page       int
	PerPage    int
}

// RequestFilter defines filter criteria for listing service requests.
type RequestFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// ReviewFilter defines pagination for review listings.
type ReviewFilter struct {
	Page    int
	PerPage int
}

// UserRepository persists the local mirror of identity-service accounts.
type UserRepository interface {
	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIDForUpdate retrieves a user and locks it until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error)

	// Upsert inserts or refreshes a user's account fields. Rating aggregates
	// are never written by Upsert.
	Upsert(ctx context.Context, user *domain.User) error

	// UpdateRating overwrites the user's derived rating aggregate.
	UpdateRating(ctx context.Context, id string, rating domain.Rating) error
}

// ServiceRepository defines the interface for service catalog persistence.
type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)

	// GetByIDForUpdate retrieves a service and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Service, error)

	// Update writes the mutable catalog fields. Rating aggregates, the
	// provider and the active flag are left untouched.
	Update(ctx context.Context, svc *domain.Service) error

	// Deactivate marks a service inactive. Requests and reviews keep
	// referencing it.
	Deactivate(ctx context.Context, id string) error

	// List returns services matching the filter along with the total count.
	List(ctx context.Context, filter ServiceFilter) ([]domain.Service, int, error)

	// UpdateRating overwrites the service's derived rating aggregate.
	UpdateRating(ctx context.Context, id string, rating domain.Rating) error
}

// RequestRepository defines the interface for service request persistence.
// Requests are never deleted.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error

	// GetByID retrieves a request with its read-model fields populated.
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)

	// UpdateStatus moves the request from expected to next and bumps its
	// version. It returns a conflict error when the stored status is no
	// longer expected.
	UpdateStatus(ctx context.Context, id, expected, next string, at time.Time) error

	// AttachReview links a review to a request that has none. It returns a
	// conflict error when a review is already attached.
	AttachReview(ctx context.Context, requestID, reviewID string) error

	// DetachReview clears the request's review link.
	DetachReview(ctx context.Context, requestID string) error

	// ListByCustomer returns the requests placed by customerID.
	ListByCustomer(ctx context.Context, customerID string, filter RequestFilter) ([]domain.ServiceRequest, int, error)

	// ListByProvider returns the requests made against services owned by
	// providerID.
	ListByProvider(ctx context.Context, providerID string, filter RequestFilter) ([]domain.ServiceRequest, int, error)
}

// ReviewRepository defines the interface for review persistence.
type ReviewRepository interface {
	// Create inserts a review. A second review for the same request fails
	// with a conflict error.
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update writes the rating and comment of an existing review.
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id string) error
	ExistsByRequestID(ctx context.Context, requestID string) (bool, error)

	ListByService(ctx context.Context, serviceID string, filter ReviewFilter) ([]domain.Review, int, error)
	ListByReviewer(ctx context.Context, reviewerID string, filter ReviewFilter) ([]domain.Review, int, error)

	// RatingsByService returns the ratings of every review of serviceID.
	RatingsByService(ctx context.Context, serviceID string) ([]int, error)

	// RatingsByProvider returns the ratings of every review of any service
	// owned by providerID.
	RatingsByProvider(ctx context.Context, providerID string) ([]int, error)

	// RatingsByReviewer returns the ratings of every review written by
	// reviewerID.
	RatingsByReviewer(ctx context.Context, reviewerID string) ([]int, error)
}

// Repositories bundles the repositories bound to one connection or
// transaction.
type Repositories struct {
	Users    UserRepository
	Services ServiceRepository
	Requests RequestRepository
	Reviews  ReviewRepository
}

// Store hands out repositories, either directly or scoped to a transaction.
type Store interface {
	// Repositories returns repositories that run each call on its own.
	Repositories() Repositories

	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/lock"
	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/internal/repository/memory"
)

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRequestCreated(ctx context.Context, req *domain.ServiceRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockPublisher) PublishRequestStatusChanged(ctx context.Context, req *domain.ServiceRequest, oldStatus, actorID string) error {
	return m.Called(ctx, req, oldStatus, actorID).Error(0)
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, rv *domain.Review) error {
	return m.Called(ctx, rv).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, rv *domain.Review) error {
	return m.Called(ctx, rv).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, rv *domain.Review) error {
	return m.Called(ctx, rv).Error(0)
}

func (m *mockPublisher) PublishServiceRatingChanged(ctx context.Context, serviceID, providerID string, service, provider domain.Rating) error {
	return m.Called(ctx, serviceID, providerID, service, provider).Error(0)
}

// allowAll accepts every publish call, returning err.
func (m *mockPublisher) allowAll(err error) *mockPublisher {
	m.On("PublishRequestCreated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishRequestStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishReviewDeleted", mock.Anything, mock.Anything).Return(err).Maybe()
	m.On("PublishServiceRatingChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err).Maybe()
	return m
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	provider  = policy.Actor{ID: "prov-1", Role: domain.RoleProvider}
	provider2 = policy.Actor{ID: "prov-2", Role: domain.RoleProvider}
	customer  = policy.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	customer2 = policy.Actor{ID: "cust-2", Role: domain.RoleCustomer}
)

type fixture struct {
	store      *memory.Store
	publisher  *mockPublisher
	catalog    *CatalogService
	requests   *RequestService
	reviews    *ReviewService
	users      *UserService
	aggregator *RatingAggregator
}

func newFixture(t *testing.T, strategy domain.ProviderRatingStrategy) *fixture {
	t.Helper()

	store := memory.NewStore()
	pub := new(mockPublisher).allowAll(nil)
	logger := newTestLogger()
	agg := NewRatingAggregator(strategy, logger)

	f := &fixture{
		store:      store,
		publisher:  pub,
		catalog:    NewCatalogService(store, logger),
		requests:   NewRequestService(store, pub, logger),
		reviews:    NewReviewService(store, lock.NewKeyedMutex(), agg, pub, logger),
		users:      NewUserService(store, logger),
		aggregator: agg,
	}

	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: provider.ID, Name: "Paula Provider", Email: "paula@example.com", Role: domain.RoleProvider},
		{ID: provider2.ID, Name: "Pedro Provider", Email: "pedro@example.com", Role: domain.RoleProvider},
		{ID: customer.ID, Name: "Carla Customer", Email: "carla@example.com", Role: domain.RoleCustomer},
		{ID: customer2.ID, Name: "Caio Customer", Email: "caio@example.com", Role: domain.RoleCustomer},
	} {
		u := u
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, f.users.SyncUser(ctx, &u))
	}
	return f
}

func (f *fixture) service(t *testing.T, owner policy.Actor, price float64) *domain.Service {
	t.Helper()
	svc, err := f.catalog.CreateService(context.Background(), owner, CreateServiceInput{
		Title:       "Eletricista residencial",
		Description: "Instalações e reparos elétricos",
		Category:    "reparos",
		Price:       price,
	})
	require.NoError(t, err)
	return svc
}

func (f *fixture) completedRequest(t *testing.T, svc *domain.Service, cust policy.Actor) *domain.ServiceRequest {
	t.Helper()
	ctx := context.Background()
	owner := policy.Actor{ID: svc.ProviderID, Role: domain.RoleProvider}

	req, err := f.requests.CreateRequest(ctx, cust, CreateRequestInput{ServiceID: svc.ID})
	require.NoError(t, err)
	_, err = f.requests.Accept(ctx, owner, req.ID)
	require.NoError(t, err)
	req, err = f.requests.Complete(ctx, owner, req.ID)
	require.NoError(t, err)
	return req
}

func (f *fixture) review(t *testing.T, req *domain.ServiceRequest, cust policy.Actor, rating int) *domain.Review {
	t.Helper()
	rv, err := f.reviews.CreateReview(context.Background(), cust, CreateReviewInput{
		RequestID: req.ID,
		Rating:    rating,
		Comment:   "Serviço muito bem feito, recomendo.",
	})
	require.NoError(t, err)
	return rv
}

func (f *fixture) serviceRating(t *testing.T, id string) domain.Rating {
	t.Helper()
	svc, err := f.store.Repositories().Services.GetByID(context.Background(), id)
	require.NoError(t, err)
	return domain.Rating{Average: svc.AverageRating, Count: svc.ReviewCount}
}

func (f *fixture) userRating(t *testing.T, id string) domain.Rating {
	t.Helper()
	u, err := f.store.Repositories().Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return domain.Rating{Average: u.AverageRating, Count: u.ReviewCount}
}

func ptr[T any](v T) *T { return &v }

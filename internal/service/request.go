package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// MaxNotesLength bounds the free-text notes of a request.
const MaxNotesLength = 1000

// RequestService runs the service request lifecycle.
type RequestService struct {
	store     repository.Store
	publisher EventPublisher
	logger    *slog.Logger
	now       Clock
}

// NewRequestService creates a new request service.
func NewRequestService(store repository.Store, publisher EventPublisher, logger *slog.Logger) *RequestService {
	return &RequestService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       utcNow,
	}
}

// CreateRequestInput holds the parameters for creating a service request.
type CreateRequestInput struct {
	ServiceID     string
	ScheduledDate *time.Time
	Notes         string
}

// ListRequestsInput holds pagination and the optional status filter.
type ListRequestsInput struct {
	Status  *string
	Page    int
	PerPage int
}

// CreateRequest places a new request for a service on behalf of a customer.
// The total price is a snapshot of the service price at creation time.
func (s *RequestService) CreateRequest(ctx context.Context, actor policy.Actor, input CreateRequestInput) (*domain.ServiceRequest, error) {
	if actor.ID == "" {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if strings.TrimSpace(input.ServiceID) == "" {
		return nil, apperrors.Validation("service_id is required")
	}
	notes := strings.TrimSpace(input.Notes)
	if len([]rune(notes)) > MaxNotesLength {
		return nil, apperrors.Validation(fmt.Sprintf("notes must be at most %d characters", MaxNotesLength))
	}

	var req *domain.ServiceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		svc, err := repos.Services.GetByID(ctx, input.ServiceID)
		if err != nil {
			return fmt.Errorf("get service: %w", err)
		}
		customer, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("get customer: %w", err)
		}

		// The mirrored role is authoritative over the token claim.
		decision := policy.Decide(policy.Actor{ID: customer.ID, Role: customer.Role}, policy.CreateRequest, policy.Resource{Service: svc})
		if err := decision.Err(); err != nil {
			return err
		}
		if !svc.IsActive {
			return apperrors.InvalidState("service is not active")
		}

		now := s.now()
		req = &domain.ServiceRequest{
			ID:            uuid.New().String(),
			ServiceID:     svc.ID,
			CustomerID:    customer.ID,
			Status:        domain.RequestStatusPending,
			ScheduledDate: input.ScheduledDate,
			Notes:         notes,
			TotalPrice:    svc.Price,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
			ServiceTitle:  svc.Title,
			ProviderID:    svc.ProviderID,
			CustomerName:  customer.Name,
			ProviderName:  svc.ProviderName,
		}
		if err := repos.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	requestsCreated.Inc()
	if err := s.publisher.PublishRequestCreated(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish request.created event",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "service request created",
		slog.String("request_id", req.ID),
		slog.String("service_id", req.ServiceID),
		slog.String("customer_id", req.CustomerID),
		slog.Float64("total_price", req.TotalPrice),
	)
	return req, nil
}

// Accept moves a pending request to ACCEPTED. Only the service's provider
// may accept.
func (s *RequestService) Accept(ctx context.Context, actor policy.Actor, id string) (*domain.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, domain.ActionAccept)
}

// Reject moves a pending request to REJECTED.
func (s *RequestService) Reject(ctx context.Context, actor policy.Actor, id string) (*domain.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, domain.ActionReject)
}

// Complete moves an accepted request to COMPLETED.
func (s *RequestService) Complete(ctx context.Context, actor policy.Actor, id string) (*domain.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, domain.ActionComplete)
}

// Cancel moves a pending or accepted request to CANCELLED. Only the
// customer may cancel.
func (s *RequestService) Cancel(ctx context.Context, actor policy.Actor, id string) (*domain.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, domain.ActionCancel)
}

// Transition applies a lifecycle action to a request. Authorization is
// decided before the transition table is consulted, and the store update is
// a compare-and-swap on the status read here.
func (s *RequestService) Transition(ctx context.Context, actor policy.Actor, id string, action domain.Action) (*domain.ServiceRequest, error) {
	guarded, ok := policy.ForLifecycle(action)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown action %q", action))
	}

	var (
		req       *domain.ServiceRequest
		oldStatus string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		req, err = repos.Requests.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		svc, err := repos.Services.GetByID(ctx, req.ServiceID)
		if err != nil {
			return fmt.Errorf("get service: %w", err)
		}

		if err := policy.Decide(actor, guarded, policy.Resource{Service: svc, Request: req}).Err(); err != nil {
			return err
		}

		next, ok := domain.NextStatus(req.Status, action)
		if !ok {
			return apperrors.InvalidState(fmt.Sprintf("cannot %s a request in status %s", action, req.Status))
		}

		now := s.now()
		if err := repos.Requests.UpdateStatus(ctx, req.ID, req.Status, next, now); err != nil {
			return fmt.Errorf("update request status: %w", err)
		}
		oldStatus = req.Status
		req.Status = next
		req.Version++
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		requestTransitions.WithLabelValues(string(action), transitionOutcome(err)).Inc()
		return nil, err
	}
	requestTransitions.WithLabelValues(string(action), outcomeOK).Inc()

	if err := s.publisher.PublishRequestStatusChanged(ctx, req, oldStatus, actor.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish request.status_changed event",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "service request status changed",
		slog.String("request_id", req.ID),
		slog.String("action", string(action)),
		slog.String("old_status", oldStatus),
		slog.String("new_status", req.Status),
		slog.String("actor_id", actor.ID),
	)
	return req, nil
}

// GetRequest returns a request visible to actor: its customer or the
// provider of its service.
func (s *RequestService) GetRequest(ctx context.Context, actor policy.Actor, id string) (*domain.ServiceRequest, error) {
	repos := s.store.Repositories()
	req, err := repos.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	svc, err := repos.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if err := policy.Decide(actor, policy.ViewRequest, policy.Resource{Service: svc, Request: req}).Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// ListMyRequests returns the requests the actor placed as a customer.
func (s *RequestService) ListMyRequests(ctx context.Context, actor policy.Actor, input ListRequestsInput) ([]domain.ServiceRequest, int, error) {
	filter, err := requestFilter(actor, input)
	if err != nil {
		return nil, 0, err
	}
	reqs, total, err := s.store.Repositories().Requests.ListByCustomer(ctx, actor.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer requests: %w", err)
	}
	return reqs, total, nil
}

// ListReceivedRequests returns the requests made against services the actor
// provides.
func (s *RequestService) ListReceivedRequests(ctx context.Context, actor policy.Actor, input ListRequestsInput) ([]domain.ServiceRequest, int, error) {
	filter, err := requestFilter(actor, input)
	if err != nil {
		return nil, 0, err
	}
	reqs, total, err := s.store.Repositories().Requests.ListByProvider(ctx, actor.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list provider requests: %w", err)
	}
	return reqs, total, nil
}

func requestFilter(actor policy.Actor, input ListRequestsInput) (repository.RequestFilter, error) {
	if actor.ID == "" {
		return repository.RequestFilter{}, apperrors.Unauthenticated("authentication required")
	}
	if input.Status != nil && !domain.IsValidRequestStatus(*input.Status) {
		return repository.RequestFilter{}, apperrors.Validation(fmt.Sprintf("unknown status %q", *input.Status))
	}
	page, perPage := normalizePage(input.Page, input.PerPage)
	return repository.RequestFilter{Status: input.Status, Page: page, PerPage: perPage}, nil
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrRoleViolation),
		errors.Is(err, apperrors.ErrOwnershipViolation),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrUnauthenticated):
		return outcomeDenied
	}
	return outcomeError
}

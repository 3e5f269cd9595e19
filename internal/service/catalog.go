package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// CatalogService manages the services providers offer. Rating aggregates are
// never written here.
type CatalogService struct {
	store  repository.Store
	logger *slog.Logger
	now    Clock
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
		now:    utcNow,
	}
}

// CreateServiceInput holds the parameters for publishing a service.
type CreateServiceInput struct {
	Title       string
	Description string
	Category    string
	Price       float64
	Location    string
	ImageURL    string
}

// UpdateServiceInput holds the fields to change. Nil fields are left as is.
type UpdateServiceInput struct {
	Title       *string
	Description *string
	Category    *string
	Price       *float64
	Location    *string
	ImageURL    *string
}

// ListServicesInput holds the catalog search parameters.
type ListServicesInput struct {
	Category   *string
	Search     *string
	ProviderID *string
	Page       int
	PerPage    int
}

func (in UpdateServiceInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Category == nil &&
		in.Price == nil && in.Location == nil && in.ImageURL == nil
}

// CreateService publishes a new active service owned by the actor.
func (s *CatalogService) CreateService(ctx context.Context, actor policy.Actor, input CreateServiceInput) (*domain.Service, error) {
	if actor.ID == "" {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	if input.Title == "" {
		return nil, apperrors.Validation("title is required")
	}
	if input.Category == "" {
		return nil, apperrors.Validation("category is required")
	}
	if input.Price < 0 {
		return nil, apperrors.Validation("price must not be negative")
	}

	var svc *domain.Service
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		provider, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("get provider: %w", err)
		}
		if err := policy.Decide(policy.Actor{ID: provider.ID, Role: provider.Role}, policy.CreateService, policy.Resource{}).Err(); err != nil {
			return err
		}

		now := s.now()
		svc = &domain.Service{
			ID:           uuid.New().String(),
			ProviderID:   provider.ID,
			ProviderName: provider.Name,
			Title:        input.Title,
			Description:  strings.TrimSpace(input.Description),
			Category:     input.Category,
			Price:        input.Price,
			Location:     strings.TrimSpace(input.Location),
			ImageURL:     strings.TrimSpace(input.ImageURL),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Services.Create(ctx, svc); err != nil {
			return fmt.Errorf("create service: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "service created",
		slog.String("service_id", svc.ID),
		slog.String("provider_id", svc.ProviderID),
		slog.String("category", svc.Category),
	)
	return svc, nil
}

// UpdateService applies a partial update to a service owned by the actor.
func (s *CatalogService) UpdateService(ctx context.Context, actor policy.Actor, id string, input UpdateServiceInput) (*domain.Service, error) {
	if input.empty() {
		return nil, apperrors.Validation("no fields to update")
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.Validation("title must not be empty")
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		return nil, apperrors.Validation("category must not be empty")
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, apperrors.Validation("price must not be negative")
	}

	var svc *domain.Service
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		svc, err = repos.Services.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get service: %w", err)
		}
		if err := policy.Decide(actor, policy.UpdateService, policy.Resource{Service: svc}).Err(); err != nil {
			return err
		}

		if input.Title != nil {
			svc.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			svc.Description = strings.TrimSpace(*input.Description)
		}
		if input.Category != nil {
			svc.Category = strings.TrimSpace(*input.Category)
		}
		if input.Price != nil {
			svc.Price = *input.Price
		}
		if input.Location != nil {
			svc.Location = strings.TrimSpace(*input.Location)
		}
		if input.ImageURL != nil {
			svc.ImageURL = strings.TrimSpace(*input.ImageURL)
		}
		svc.UpdatedAt = s.now()

		if err := repos.Services.Update(ctx, svc); err != nil {
			return fmt.Errorf("update service: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "service updated",
		slog.String("service_id", svc.ID),
	)
	return svc, nil
}

// DeleteService deactivates a service owned by the actor. Existing requests
// and reviews keep referencing it.
func (s *CatalogService) DeleteService(ctx context.Context, actor policy.Actor, id string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		svc, err := repos.Services.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get service: %w", err)
		}
		if err := policy.Decide(actor, policy.DeleteService, policy.Resource{Service: svc}).Err(); err != nil {
			return err
		}
		if err := repos.Services.Deactivate(ctx, id); err != nil {
			return fmt.Errorf("deactivate service: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "service deactivated",
		slog.String("service_id", id),
		slog.String("provider_id", actor.ID),
	)
	return nil
}

// GetService returns a service by id, active or not.
func (s *CatalogService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := s.store.Repositories().Services.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// ListServices returns active services matching the filter.
func (s *CatalogService) ListServices(ctx context.Context, input ListServicesInput) ([]domain.Service, int, error) {
	page, perPage := normalizePage(input.Page, input.PerPage)
	services, total, err := s.store.Repositories().Services.List(ctx, repository.ServiceFilter{
		Category:   input.Category,
		Search:     input.Search,
		ProviderID: input.ProviderID,
		ActiveOnly: true,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	return services, total, nil
}

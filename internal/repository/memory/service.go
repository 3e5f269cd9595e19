package memory

import (
	"context"
	"strings"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// ServiceRepository implements repository.ServiceRepository in memory.
type ServiceRepository struct {
	v *view
}

func (r *ServiceRepository) Create(_ context.Context, svc *domain.Service) error {
	defer r.v.enter()()

	d := r.v.data()
	if _, ok := d.services[svc.ID]; ok {
		return apperrors.Conflict("service " + svc.ID + " already exists")
	}
	d.services[svc.ID] = *svc
	return nil
}

func (r *ServiceRepository) GetByID(_ context.Context, id string) (*domain.Service, error) {
	defer r.v.enter()()

	d := r.v.data()
	svc, ok := d.services[id]
	if !ok {
		return nil, apperrors.NotFound("service", id)
	}
	withProviderName(d, &svc)
	return &svc, nil
}

// GetByIDForUpdate is GetByID; transactions are already serialized.
func (r *ServiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Service, error) {
	return r.GetByID(ctx, id)
}

func (r *ServiceRepository) Update(_ context.Context, svc *domain.Service) error {
	defer r.v.enter()()

	d := r.v.data()
	cur, ok := d.services[svc.ID]
	if !ok {
		return apperrors.NotFound("service", svc.ID)
	}
	cur.Title = svc.Title
	cur.Description = svc.Description
	cur.Category = svc.Category
	cur.Price = svc.Price
	cur.Location = svc.Location
	cur.ImageURL = svc.ImageURL
	cur.UpdatedAt = svc.UpdatedAt
	d.services[svc.ID] = cur
	return nil
}

func (r *ServiceRepository) Deactivate(_ context.Context, id string) error {
	defer r.v.enter()()

	d := r.v.data()
	cur, ok := d.services[id]
	if !ok {
		return apperrors.NotFound("service", id)
	}
	cur.IsActive = false
	cur.UpdatedAt = time.Now().UTC()
	d.services[id] = cur
	return nil
}

func (r *ServiceRepository) List(_ context.Context, filter repository.ServiceFilter) ([]domain.Service, int, error) {
	defer r.v.enter()()

	d := r.v.data()
	var matched []domain.Service
	for _, svc := range d.services {
		if filter.ActiveOnly && !svc.IsActive {
			continue
		}
		if filter.ProviderID != nil && svc.ProviderID != *filter.ProviderID {
			continue
		}
		if filter.Category != nil && !strings.EqualFold(svc.Category, *filter.Category) {
			continue
		}
		if filter.Search != nil && !matchesSearch(svc, *filter.Search) {
			continue
		}
		withProviderName(d, &svc)
		matched = append(matched, svc)
	}

	out, total := page(matched,
		func(s domain.Service) int64 { return s.CreatedAt.UnixNano() },
		func(s domain.Service) string { return s.ID },
		filter.Page, filter.PerPage)
	return out, total, nil
}

func (r *ServiceRepository) UpdateRating(_ context.Context, id string, rating domain.Rating) error {
	defer r.v.enter()()

	d := r.v.data()
	cur, ok := d.services[id]
	if !ok {
		return apperrors.NotFound("service", id)
	}
	cur.AverageRating = rating.Average
	cur.ReviewCount = rating.Count
	d.services[id] = cur
	return nil
}

func matchesSearch(svc domain.Service, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	return strings.Contains(strings.ToLower(svc.Title), term) ||
		strings.Contains(strings.ToLower(svc.Description), term)
}

func withProviderName(d *dataset, svc *domain.Service) {
	if u, ok := d.users[svc.ProviderID]; ok {
		svc.ProviderName = u.Name
	}
}

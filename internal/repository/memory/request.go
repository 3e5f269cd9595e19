package memory

import (
	"context"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// RequestRepository implements repository.RequestRepository in memory.
type RequestRepository struct {
	v *view
}

func (r *RequestRepository) Create(_ context.Context, req *domain.ServiceRequest) error {
	defer r.v.enter()()

	d := r.v.data()
	if _, ok := d.requests[req.ID]; ok {
		return apperrors.Conflict("request " + req.ID + " already exists")
	}
	stored := *req
	stored.ServiceTitle, stored.ProviderID, stored.CustomerName, stored.ProviderName = "", "", "", ""
	d.requests[req.ID] = stored
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	defer r.v.enter()()

	d := r.v.data()
	req, ok := d.requests[id]
	if !ok {
		return nil, apperrors.NotFound("request", id)
	}
	enrichRequest(d, &req)
	return &req, nil
}

func (r *RequestRepository) UpdateStatus(_ context.Context, id, expected, next string, at time.Time) error {
	defer r.v.enter()()

	d := r.v.data()
	req, ok := d.requests[id]
	if !ok {
		return apperrors.NotFound("request", id)
	}
	if req.Status != expected {
		return apperrors.Conflict("request " + id + " was modified concurrently")
	}
	req.Status = next
	req.Version++
	req.UpdatedAt = at
	d.requests[id] = req
	return nil
}

func (r *RequestRepository) AttachReview(_ context.Context, requestID, reviewID string) error {
	defer r.v.enter()()

	d := r.v.data()
	req, ok := d.requests[requestID]
	if !ok {
		return apperrors.NotFound("request", requestID)
	}
	if req.HasReview() {
		return apperrors.Conflict("request " + requestID + " already has a review")
	}
	id := reviewID
	req.ReviewID = &id
	d.requests[requestID] = req
	return nil
}

func (r *RequestRepository) DetachReview(_ context.Context, requestID string) error {
	defer r.v.enter()()

	d := r.v.data()
	req, ok := d.requests[requestID]
	if !ok {
		return apperrors.NotFound("request", requestID)
	}
	req.ReviewID = nil
	d.requests[requestID] = req
	return nil
}

func (r *RequestRepository) ListByCustomer(_ context.Context, customerID string, filter repository.RequestFilter) ([]domain.ServiceRequest, int, error) {
	defer r.v.enter()()

	d := r.v.data()
	return listRequests(d, filter, func(req domain.ServiceRequest) bool {
		return req.CustomerID == customerID
	})
}

func (r *RequestRepository) ListByProvider(_ context.Context, providerID string, filter repository.RequestFilter) ([]domain.ServiceRequest, int, error) {
	defer r.v.enter()()

	d := r.v.data()
	return listRequests(d, filter, func(req domain.ServiceRequest) bool {
		svc, ok := d.services[req.ServiceID]
		return ok && svc.ProviderID == providerID
	})
}

func listRequests(d *dataset, filter repository.RequestFilter, keep func(domain.ServiceRequest) bool) ([]domain.ServiceRequest, int, error) {
	var matched []domain.ServiceRequest
	for _, req := range d.requests {
		if !keep(req) {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		enrichRequest(d, &req)
		matched = append(matched, req)
	}

	out, total := page(matched,
		func(r domain.ServiceRequest) int64 { return r.CreatedAt.UnixNano() },
		func(r domain.ServiceRequest) string { return r.ID },
		filter.Page, filter.PerPage)
	return out, total, nil
}

func enrichRequest(d *dataset, req *domain.ServiceRequest) {
	if svc, ok := d.services[req.ServiceID]; ok {
		req.ServiceTitle = svc.Title
		req.ProviderID = svc.ProviderID
		if p, ok := d.users[svc.ProviderID]; ok {
			req.ProviderName = p.Name
		}
	}
	if c, ok := d.users[req.CustomerID]; ok {
		req.CustomerName = c.Name
	}
}

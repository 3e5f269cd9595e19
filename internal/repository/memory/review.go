package memory

import (
	"context"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository in memory.
type ReviewRepository struct {
	v *view
}

func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	defer r.v.enter()()

	d := r.v.data()
	for _, existing := range d.reviews {
		if existing.RequestID == review.RequestID {
			return apperrors.Conflict("request " + review.RequestID + " has already been reviewed")
		}
	}
	stored := *review
	stored.ReviewerName, stored.ServiceTitle = "", ""
	d.reviews[review.ID] = stored
	return nil
}

func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	defer r.v.enter()()

	d := r.v.data()
	rv, ok := d.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	enrichReview(d, &rv)
	return &rv, nil
}

func (r *ReviewRepository) Update(_ context.Context, review *domain.Review) error {
	defer r.v.enter()()

	d := r.v.data()
	cur, ok := d.reviews[review.ID]
	if !ok {
		return apperrors.NotFound("review", review.ID)
	}
	cur.Rating = review.Rating
	cur.Comment = review.Comment
	cur.UpdatedAt = review.UpdatedAt
	d.reviews[review.ID] = cur
	return nil
}

func (r *ReviewRepository) Delete(_ context.Context, id string) error {
	defer r.v.enter()()

	d := r.v.data()
	if _, ok := d.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(d.reviews, id)
	return nil
}

func (r *ReviewRepository) ExistsByRequestID(_ context.Context, requestID string) (bool, error) {
	defer r.v.enter()()

	for _, rv := range r.v.data().reviews {
		if rv.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ReviewRepository) ListByService(_ context.Context, serviceID string, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	defer r.v.enter()()

	return listReviews(r.v.data(), filter, func(rv domain.Review) bool { return rv.ServiceID == serviceID })
}

func (r *ReviewRepository) ListByReviewer(_ context.Context, reviewerID string, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	defer r.v.enter()()

	return listReviews(r.v.data(), filter, func(rv domain.Review) bool { return rv.ReviewerID == reviewerID })
}

func (r *ReviewRepository) RatingsByService(_ context.Context, serviceID string) ([]int, error) {
	defer r.v.enter()()

	return ratings(r.v.data(), func(_ *dataset, rv domain.Review) bool { return rv.ServiceID == serviceID }), nil
}

func (r *ReviewRepository) RatingsByProvider(_ context.Context, providerID string) ([]int, error) {
	defer r.v.enter()()

	return ratings(r.v.data(), func(d *dataset, rv domain.Review) bool {
		svc, ok := d.services[rv.ServiceID]
		return ok && svc.ProviderID == providerID
	}), nil
}

func (r *ReviewRepository) RatingsByReviewer(_ context.Context, reviewerID string) ([]int, error) {
	defer r.v.enter()()

	return ratings(r.v.data(), func(_ *dataset, rv domain.Review) bool { return rv.ReviewerID == reviewerID }), nil
}

func ratings(d *dataset, keep func(*dataset, domain.Review) bool) []int {
	out := []int{}
	for _, rv := range d.reviews {
		if keep(d, rv) {
			out = append(out, rv.Rating)
		}
	}
	return out
}

func listReviews(d *dataset, filter repository.ReviewFilter, keep func(domain.Review) bool) ([]domain.Review, int, error) {
	var matched []domain.Review
	for _, rv := range d.reviews {
		if !keep(rv) {
			continue
		}
		enrichReview(d, &rv)
		matched = append(matched, rv)
	}

	out, total := page(matched,
		func(r domain.Review) int64 { return r.CreatedAt.UnixNano() },
		func(r domain.Review) string { return r.ID },
		filter.Page, filter.PerPage)
	return out, total, nil
}

func enrichReview(d *dataset, rv *domain.Review) {
	if u, ok := d.users[rv.ReviewerID]; ok {
		rv.ReviewerName = u.Name
	}
	if svc, ok := d.services[rv.ServiceID]; ok {
		rv.ServiceTitle = svc.Title
	}
}

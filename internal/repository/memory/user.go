package memory

import (
	"context"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// UserRepository implements repository.UserRepository in memory.
type UserRepository struct {
	v *view
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	defer r.v.enter()()

	u, ok := r.v.data().users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

// GetByIDForUpdate is GetByID; transactions are already serialized.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Upsert(_ context.Context, user *domain.User) error {
	defer r.v.enter()()

	d := r.v.data()
	next := *user
	if cur, ok := d.users[user.ID]; ok {
		next.AverageRating = cur.AverageRating
		next.ReviewCount = cur.ReviewCount
		next.CreatedAt = cur.CreatedAt
	} else {
		next.AverageRating = 0
		next.ReviewCount = 0
	}
	d.users[user.ID] = next
	return nil
}

func (r *UserRepository) UpdateRating(_ context.Context, id string, rating domain.Rating) error {
	defer r.v.enter()()

	d := r.v.data()
	u, ok := d.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.AverageRating = rating.Average
	u.ReviewCount = rating.Count
	u.UpdatedAt = time.Now().UTC()
	d.users[id] = u
	return nil
}

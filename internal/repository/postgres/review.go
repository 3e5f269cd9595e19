package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/pkg/database"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

const (
	reviewColumns = `rv.id, rv.request_id, rv.service_id, rv.reviewer_id, rv.rating, rv.comment, rv.created_at, rv.updated_at,
		       COALESCE(u.name, ''), COALESCE(s.title, '')`
	reviewFrom = `
		FROM reviews rv
		LEFT JOIN users u ON u.id = rv.reviewer_id
		LEFT JOIN services s ON s.id = rv.service_id`
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review. The unique constraint on request_id turns a
// concurrent second review into a conflict.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, request_id, service_id, reviewer_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "reviews.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.RequestID,
		review.ServiceID,
		review.ReviewerID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, reviewRequestConstraint) {
			return apperrors.Conflict(fmt.Sprintf("request %s has already been reviewed", review.RequestID))
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review with the reviewer's name and service title.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE rv.id = $1`

	var rv domain.Review
	if err := scanReview(r.pool.QueryRow(ctx, query, id), &rv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

// Update writes the rating and comment of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	query := `UPDATE reviews SET rating = $1, comment = $2, updated_at = $3 WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "reviews.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, review.Rating, review.Comment, review.UpdatedAt, review.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "reviews.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// ExistsByRequestID reports whether the request already has a review.
func (r *ReviewRepository) ExistsByRequestID(ctx context.Context, requestID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reviews WHERE request_id = $1)`, requestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return exists, nil
}

// ListByService returns a service's reviews, newest first.
func (r *ReviewRepository) ListByService(ctx context.Context, serviceID string, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	return r.list(ctx, "rv.service_id", serviceID, filter)
}

// ListByReviewer returns the reviews a user wrote, newest first.
func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	return r.list(ctx, "rv.reviewer_id", reviewerID, filter)
}

func (r *ReviewRepository) list(ctx context.Context, column, value string, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	limit, offset := limitOffset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		%s
		WHERE %s = $1
		ORDER BY rv.created_at DESC, rv.id
		LIMIT $2 OFFSET $3`,
		reviewColumns, reviewFrom, column,
	)

	rows, err := r.pool.Query(ctx, query, value, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := scanReview(rows, &rv, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// RatingsByService returns every rating of a service.
func (r *ReviewRepository) RatingsByService(ctx context.Context, serviceID string) ([]int, error) {
	return r.ratings(ctx, "reviews.RatingsByService",
		`SELECT rating FROM reviews WHERE service_id = $1`, serviceID)
}

// RatingsByProvider returns every rating of any service the provider owns.
func (r *ReviewRepository) RatingsByProvider(ctx context.Context, providerID string) ([]int, error) {
	return r.ratings(ctx, "reviews.RatingsByProvider", `
		SELECT rv.rating
		FROM reviews rv
		JOIN services s ON s.id = rv.service_id
		WHERE s.provider_id = $1`, providerID)
}

// RatingsByReviewer returns every rating the user has given.
func (r *ReviewRepository) RatingsByReviewer(ctx context.Context, reviewerID string) ([]int, error) {
	return r.ratings(ctx, "reviews.RatingsByReviewer",
		`SELECT rating FROM reviews WHERE reviewer_id = $1`, reviewerID)
}

func (r *ReviewRepository) ratings(ctx context.Context, op, query, id string) (_ []int, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]int, 0)
	for rows.Next() {
		var rating int
		if err = rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

func scanReview(row pgx.Row, rv *domain.Review, extra ...any) error {
	dest := []any{
		&rv.ID,
		&rv.RequestID,
		&rv.ServiceID,
		&rv.ReviewerID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.ReviewerName,
		&rv.ServiceTitle,
	}
	return row.Scan(append(dest, extra...)...)
}

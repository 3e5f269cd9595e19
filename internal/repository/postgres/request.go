package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/pkg/database"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// requestColumns and requestFrom build the request read model, joining the
// service title and the display names of both parties.
const (
	requestColumns = `r.id, r.service_id, r.customer_id, r.status, r.scheduled_date, r.notes, r.total_price,
		       r.review_id, r.version, r.created_at, r.updated_at,
		       s.title, s.provider_id, COALESCE(c.name, ''), COALESCE(p.name, '')`
	requestFrom = `
		FROM service_requests r
		JOIN services s ON s.id = r.service_id
		LEFT JOIN users c ON c.id = r.customer_id
		LEFT JOIN users p ON p.id = s.provider_id`
)

// RequestRepository implements repository.RequestRepository using PostgreSQL.
type RequestRepository struct {
	pool database.DBTX
}

// NewRequestRepository creates a new PostgreSQL-backed request repository.
func NewRequestRepository(pool database.DBTX) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create inserts a new service request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) (err error) {
	query := `
		INSERT INTO service_requests (id, service_id, customer_id, status, scheduled_date, notes, total_price, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "requests.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		req.ID,
		req.ServiceID,
		req.CustomerID,
		req.Status,
		req.ScheduledDate,
		req.Notes,
		req.TotalPrice,
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Validation("request references an unknown service or customer")
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetByID retrieves a request with its read-model fields.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (_ *domain.ServiceRequest, err error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE r.id = $1`

	ctx, end := database.TraceQuery(ctx, "requests.GetByID", query)
	defer func() { end(err) }()

	var req domain.ServiceRequest
	if err = scanRequest(r.pool.QueryRow(ctx, query, id), &req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("request", id)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

// UpdateStatus performs the compare-and-swap status transition.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id, expected, next string, at time.Time) (err error) {
	query := `
		UPDATE service_requests
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND status = $4`

	ctx, end := database.TraceQuery(ctx, "requests.UpdateStatus", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, next, at, id, expected)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("request %s is no longer %s", id, expected))
	}
	return nil
}

// AttachReview links reviewID to a request that has no review yet.
func (r *RequestRepository) AttachReview(ctx context.Context, requestID, reviewID string) error {
	query := `
		UPDATE service_requests
		SET review_id = $1, updated_at = NOW()
		WHERE id = $2 AND review_id IS NULL`

	ct, err := r.pool.Exec(ctx, query, reviewID, requestID)
	if err != nil {
		return fmt.Errorf("attach review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("request %s already has a review", requestID))
	}
	return nil
}

// DetachReview clears the request's review link.
func (r *RequestRepository) DetachReview(ctx context.Context, requestID string) error {
	query := `UPDATE service_requests SET review_id = NULL, updated_at = NOW() WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, requestID)
	if err != nil {
		return fmt.Errorf("detach review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("request", requestID)
	}
	return nil
}

// ListByCustomer returns requests placed by a customer.
func (r *RequestRepository) ListByCustomer(ctx context.Context, customerID string, filter repository.RequestFilter) ([]domain.ServiceRequest, int, error) {
	return r.list(ctx, "r.customer_id", customerID, filter)
}

// ListByProvider returns requests made against a provider's services.
func (r *RequestRepository) ListByProvider(ctx context.Context, providerID string, filter repository.RequestFilter) ([]domain.ServiceRequest, int, error) {
	return r.list(ctx, "s.provider_id", providerID, filter)
}

func (r *RequestRepository) list(ctx context.Context, ownerColumn, ownerID string, filter repository.RequestFilter) ([]domain.ServiceRequest, int, error) {
	args := []any{ownerID}
	where := fmt.Sprintf("WHERE %s = $1", ownerColumn)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += " AND r.status = $2"
	}

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		%s
		%s
		ORDER BY r.created_at DESC, r.id
		LIMIT $%d OFFSET $%d`,
		requestColumns, requestFrom, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var totalCount int
	requests := make([]domain.ServiceRequest, 0)
	for rows.Next() {
		var req domain.ServiceRequest
		if err := scanRequest(rows, &req, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate request rows: %w", err)
	}

	return requests, totalCount, nil
}

func scanRequest(row pgx.Row, req *domain.ServiceRequest, extra ...any) error {
	dest := []any{
		&req.ID,
		&req.ServiceID,
		&req.CustomerID,
		&req.Status,
		&req.ScheduledDate,
		&req.Notes,
		&req.TotalPrice,
		&req.ReviewID,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ServiceTitle,
		&req.ProviderID,
		&req.CustomerName,
		&req.ProviderName,
	}
	return row.Scan(append(dest, extra...)...)
}

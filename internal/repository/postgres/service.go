package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/pkg/database"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

const serviceColumns = `s.id, s.provider_id, s.title, s.description, s.category, s.price, s.location,
	s.image_url, s.is_active, s.average_rating, s.review_count, s.created_at, s.updated_at`

// ServiceRepository implements repository.ServiceRepository using PostgreSQL.
type ServiceRepository struct {
	pool database.DBTX
}

// NewServiceRepository creates a new PostgreSQL-backed service repository.
func NewServiceRepository(pool database.DBTX) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// Create inserts a new service into the catalog.
func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, provider_id, title, description, category, price, location, image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		svc.ID,
		svc.ProviderID,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.Price,
		svc.Location,
		svc.ImageURL,
		svc.IsActive,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("user", svc.ProviderID)
		}
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// GetByID retrieves a service with its provider's display name.
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `
		SELECT ` + serviceColumns + `, COALESCE(u.name, '')
		FROM services s
		LEFT JOIN users u ON u.id = s.provider_id
		WHERE s.id = $1`

	var svc domain.Service
	if err := scanService(r.pool.QueryRow(ctx, query, id), &svc, &svc.ProviderName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("service", id)
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// GetByIDForUpdate retrieves a service and locks its row.
func (r *ServiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services s WHERE s.id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "services.GetByIDForUpdate", query)
	var svc domain.Service
	err := scanService(r.pool.QueryRow(ctx, query, id), &svc)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("service", id)
		}
		return nil, fmt.Errorf("lock service: %w", err)
	}
	return &svc, nil
}

// Update writes the editable catalog fields.
func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	query := `
		UPDATE services
		SET title = $1, description = $2, category = $3, price = $4, location = $5, image_url = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.Price,
		svc.Location,
		svc.ImageURL,
		svc.UpdatedAt,
		svc.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", svc.ID)
	}
	return nil
}

// Deactivate hides a service from the catalog without deleting it.
func (r *ServiceRepository) Deactivate(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE services SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate service: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", id)
	}
	return nil
}

// List returns services matching the filter with the total count.
func (r *ServiceRepository) List(ctx context.Context, filter repository.ServiceFilter) ([]domain.Service, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ActiveOnly {
		conditions = append(conditions, "s.is_active")
	}
	if filter.ProviderID != nil {
		conditions = append(conditions, fmt.Sprintf("s.provider_id = $%d", argIndex))
		args = append(args, *filter.ProviderID)
		argIndex++
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.category) = LOWER($%d)", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}
	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(s.title ILIKE $%d OR s.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+strings.TrimSpace(*filter.Search)+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(u.name, ''), count(*) OVER() AS total_count
		FROM services s
		LEFT JOIN users u ON u.id = s.provider_id
		%s
		ORDER BY s.created_at DESC, s.id
		LIMIT $%d OFFSET $%d`,
		serviceColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var totalCount int
	services := make([]domain.Service, 0)
	for rows.Next() {
		var svc domain.Service
		if err := scanService(rows, &svc, &svc.ProviderName, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate service rows: %w", err)
	}

	return services, totalCount, nil
}

// UpdateRating overwrites the service's rating aggregate.
func (r *ServiceRepository) UpdateRating(ctx context.Context, id string, rating domain.Rating) (err error) {
	query := `UPDATE services SET average_rating = $1, review_count = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "services.UpdateRating", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, rating.Average, rating.Count, id)
	if err != nil {
		return fmt.Errorf("update service rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", id)
	}
	return nil
}

func scanService(row pgx.Row, svc *domain.Service, extra ...any) error {
	dest := []any{
		&svc.ID,
		&svc.ProviderID,
		&svc.Title,
		&svc.Description,
		&svc.Category,
		&svc.Price,
		&svc.Location,
		&svc.ImageURL,
		&svc.IsActive,
		&svc.AverageRating,
		&svc.ReviewCount,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

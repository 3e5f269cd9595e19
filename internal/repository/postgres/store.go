package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/pkg/database"
	"github.com/Lnando2k21/projetofinal/pkg/pagination"
)

// reviewRequestConstraint is the unique constraint that allows one review
// per request.
const reviewRequestConstraint = "reviews_request_id_key"

// Store implements repository.Store on a PostgreSQL pool.
type Store struct {
	pool database.DBTX
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL-backed store.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories that run directly on the pool.
func (s *Store) Repositories() repository.Repositories {
	return bind(s.pool)
}

// WithinTx runs fn with repositories bound to one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, bind(tx))
	})
}

func bind(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Users:    NewUserRepository(db),
		Services: NewServiceRepository(db),
		Requests: NewRequestRepository(db),
		Reviews:  NewReviewRepository(db),
	}
}

func limitOffset(page, perPage int) (int, int) {
	p := pagination.Params{Page: page, PerPage: perPage}.Normalize()
	return p.PerPage, p.Offset()
}

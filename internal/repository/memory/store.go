// Package memory is an in-process Store used for local development and
// tests. Transactions run one at a time against a private copy of the data,
// which replaces the live copy on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/repository"
	"github.com/Lnando2k21/projetofinal/pkg/pagination"
)

type dataset struct {
	users    map[string]domain.User
	services map[string]domain.Service
	requests map[string]domain.ServiceRequest
	reviews  map[string]domain.Review
}

func newDataset() *dataset {
	return &dataset{
		users:    make(map[string]domain.User),
		services: make(map[string]domain.Service),
		requests: make(map[string]domain.ServiceRequest),
		reviews:  make(map[string]domain.Review),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:    make(map[string]domain.User, len(d.users)),
		services: make(map[string]domain.Service, len(d.services)),
		requests: make(map[string]domain.ServiceRequest, len(d.requests)),
		reviews:  make(map[string]domain.Review, len(d.reviews)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.reviews {
		c.reviews[k] = v
	}
	return c
}

// view is what a repository reads and writes through. Direct views lock the
// store for each call; transactional views own a private dataset.
type view struct {
	enter func() (unlock func())
	data  func() *dataset
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.Mutex
	live *dataset
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{live: newDataset()}
}

// Repositories returns repositories that lock the store for each call.
func (s *Store) Repositories() repository.Repositories {
	return bind(&view{
		enter: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
		data: func() *dataset { return s.live },
	})
}

// WithinTx runs fn against a copy of the data while holding the store lock.
// The copy replaces the live data only when fn succeeds. Calling the direct
// repositories from inside fn deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.live.clone()
	repos := bind(&view{
		enter: func() func() { return func() {} },
		data:  func() *dataset { return work },
	})

	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.live = work
	return nil
}

func bind(v *view) repository.Repositories {
	return repository.Repositories{
		Users:    &UserRepository{v: v},
		Services: &ServiceRepository{v: v},
		Requests: &RequestRepository{v: v},
		Reviews:  &ReviewRepository{v: v},
	}
}

// page returns the filter's window over items, newest first.
func page[T any](items []T, createdAt func(T) int64, id func(T) string, pg, perPage int) ([]T, int) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := createdAt(items[i]), createdAt(items[j])
		if ci != cj {
			return ci > cj
		}
		return id(items[i]) < id(items[j])
	})

	total := len(items)
	start, end := pagination.Params{Page: pg, PerPage: perPage}.Window(total)

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, total
}

// Package lock provides the per-key mutual exclusion used to serialize
// rating recomputation for a service.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Release gives a held lock back. It is safe to call more than once.
type Release func()

// Locker hands out exclusive locks by key.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx ends.
	Acquire(ctx context.Context, key string) (Release, error)
}

// ServiceKey is the lock key guarding a service's rating aggregate.
func ServiceKey(serviceID string) string {
	return "service:" + serviceID
}

// WithTimeout bounds every Acquire on l by d. A zero d leaves l unchanged.
func WithTimeout(l Locker, d time.Duration) Locker {
	if d <= 0 {
		return l
	}
	return timeoutLocker{inner: l, timeout: d}
}

type timeoutLocker struct {
	inner   Locker
	timeout time.Duration
}

func (t timeoutLocker) Acquire(ctx context.Context, key string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Acquire(ctx, key)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no goroutine
// holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Acquire implements Locker.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, kl)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			m.unref(key, kl)
		})
	}, nil
}

func (m *KeyedMutex) unref(key string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

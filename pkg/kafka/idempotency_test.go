package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// MemoryIdempotencyStore
// ---------------------------------------------------------------------------

func TestMemoryIdempotencyStore_AddAndContains(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	got, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, store.Add(ctx, "evt-1"))
	require.NoError(t, store.Add(ctx, "evt-1"))

	got, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt"))
	now = now.Add(2 * time.Minute)

	got, err := store.Contains(ctx, "evt")
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryIdempotencyStore_Concurrent(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, "evt")
			_, _ = store.Contains(ctx, "evt")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}

// ---------------------------------------------------------------------------
// RedisIdempotencyStore
// ---------------------------------------------------------------------------

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisIdempotencyStore(client, "idem:", time.Hour)
	ctx := context.Background()

	got, err := store.Contains(ctx, "evt-9")
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, store.Add(ctx, "evt-9"))
	assert.True(t, mr.Exists("idem:evt-9"))

	got, err = store.Contains(ctx, "evt-9")
	require.NoError(t, err)
	assert.True(t, got)

	mr.FastForward(2 * time.Hour)
	got, err = store.Contains(ctx, "evt-9")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := NewRedisIdempotencyStore(client, "idem:", time.Hour)
	_, err := store.Contains(context.Background(), "evt")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// IdempotentHandler
// ---------------------------------------------------------------------------

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Add(context.Context, string) error { return errors.New("store down") }

func TestIdempotentHandler(t *testing.T) {
	tests := []struct {
		name      string
		store     IdempotencyStore
		events    []*Event
		innerErr  error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "duplicate skipped",
			store:     NewMemoryIdempotencyStore(time.Minute),
			events:    []*Event{{EventID: "a"}, {EventID: "a"}},
			wantCalls: 1,
		},
		{
			name:      "distinct ids processed",
			store:     NewMemoryIdempotencyStore(time.Minute),
			events:    []*Event{{EventID: "a"}, {EventID: "b"}},
			wantCalls: 2,
		},
		{
			name:      "empty id passes through",
			store:     NewMemoryIdempotencyStore(time.Minute),
			events:    []*Event{{}, {}},
			wantCalls: 2,
		},
		{
			name:      "failed handling is not recorded",
			store:     NewMemoryIdempotencyStore(time.Minute),
			events:    []*Event{{EventID: "a"}, {EventID: "a"}},
			innerErr:  errors.New("boom"),
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name:      "store failure processes anyway",
			store:     failingStore{},
			events:    []*Event{{EventID: "a"}, {EventID: "a"}},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := IdempotentHandler(tt.store, func(context.Context, *Event) error {
				calls++
				return tt.innerErr
			}, testLogger())

			for _, ev := range tt.events {
				err := h(context.Background(), ev)
				if tt.wantErr {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

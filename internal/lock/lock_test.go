package lock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exclusive(t *testing.T, l Locker) {
	t.Helper()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), ServiceKey("svc-1"))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

// --- KeyedMutex ---

func TestKeyedMutex_Exclusive(t *testing.T) {
	m := NewKeyedMutex()
	exclusive(t, m)
	assert.Zero(t, m.Len(), "released keys are dropped")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := NewKeyedMutex()

	r1, err := m.Acquire(context.Background(), ServiceKey("a"))
	require.NoError(t, err)
	r2, err := m.Acquire(context.Background(), ServiceKey("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	r1()
	r2()
	assert.Zero(t, m.Len())
}

func TestKeyedMutex_HonoursContext(t *testing.T) {
	m := NewKeyedMutex()
	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, m.Len(), "the abandoned waiter leaves no entry behind")
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	m := NewKeyedMutex()
	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
	release()

	again, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestWithTimeout(t *testing.T) {
	m := NewKeyedMutex()
	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	bounded := WithTimeout(m, 10*time.Millisecond)
	start := time.Now()
	_, err = bounded.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Less(t, time.Since(start), time.Second)

	assert.Same(t, m, WithTimeout(m, 0))
}

// --- RedisLocker ---

func setupRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedisLocker(client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.retryInterval = time.Millisecond
	return l, mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	l, mr := setupRedisLocker(t, 10*time.Second)
	exclusive(t, l)
	assert.False(t, mr.Exists(keyPrefix+ServiceKey("svc-1")))
}

func TestRedisLocker_SetsTTL(t *testing.T) {
	l, mr := setupRedisLocker(t, 5*time.Second)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	assert.True(t, mr.Exists(keyPrefix+"k"))
	assert.Equal(t, 5*time.Second, mr.TTL(keyPrefix+"k"))
}

func TestRedisLocker_TimesOut(t *testing.T) {
	l, _ := setupRedisLocker(t, 10*time.Second)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestRedisLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	l, mr := setupRedisLocker(t, time.Second)

	first, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	first()
	assert.True(t, mr.Exists(keyPrefix+"k"), "a stale release must not drop the new holder's lock")

	second()
	assert.False(t, mr.Exists(keyPrefix+"k"))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	l, mr := setupRedisLocker(t, time.Second)
	mr.Close()

	_, err := l.Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}

package lock_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"harvest-engine/internal/lock"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLocker is an in-process Locker for exercising With.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (m *memLocker) Obtain(_ context.Context, key string, _ time.Duration) (lock.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, lock.ErrLocked
	}
	m.held[key] = true
	return &memLease{m: m, key: key}, nil
}

type memLease struct {
	m         *memLocker
	key       string
	refreshed []time.Duration
}

func (l *memLease) Refresh(_ context.Context, ttl time.Duration) error {
	l.refreshed = append(l.refreshed, ttl)
	return nil
}

func (l *memLease) Release(context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	delete(l.m.held, l.key)
	return nil
}

func TestSimulationKey(t *testing.T) {
	assert.Equal(t, "lock:sim:3:7", lock.SimulationKey(3, 7))
	assert.NotEqual(t, lock.SimulationKey(3, 7), lock.SimulationKey(7, 3))
}

func TestWith_ReleasesAfterRun(t *testing.T) {
	l := &memLocker{held: map[string]bool{}}
	key := lock.SimulationKey(1, 1)

	err := lock.With(context.Background(), l, key, time.Minute, func(ctx context.Context, _ lock.Lease) error {
		_, err := l.Obtain(ctx, key, time.Minute)
		assert.ErrorIs(t, err, lock.ErrLocked, "nested obtain must collide")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, l.held[key])
}

func TestWith_ReturnsFnErrorAndStillReleases(t *testing.T) {
	l := &memLocker{held: map[string]bool{}}
	boom := errors.New("boom")

	err := lock.With(context.Background(), l, "k", time.Minute, func(context.Context, lock.Lease) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, l.held["k"])
}

func TestWith_HandsFnTheHeldLease(t *testing.T) {
	l := &memLocker{held: map[string]bool{}}

	var got *memLease
	err := lock.With(context.Background(), l, "k", time.Minute, func(ctx context.Context, lease lock.Lease) error {
		got = lease.(*memLease)
		assert.True(t, l.held["k"])
		return lease.Refresh(ctx, 2*time.Minute)
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []time.Duration{2 * time.Minute}, got.refreshed)
	assert.False(t, l.held["k"])
}

func TestAdvisoryLocker_Collides(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping advisory lock test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	l := lock.NewAdvisoryLocker(pool)
	key := lock.SimulationKey(900, 1)

	first, err := l.Obtain(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, key, time.Minute)
	assert.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx), "second release is a no-op")

	again, err := l.Obtain(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_Collides(t *testing.T) {
	_ = godotenv.Load("../../.env")
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping redis lock test")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	l := lock.NewRedisLocker(rdb)
	key := lock.SimulationKey(901, 1)

	first, err := l.Obtain(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, key, 5*time.Second)
	assert.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, first.Refresh(ctx, 10*time.Second))
	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))
}

package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker uses Postgres session advisory locks. The lease pins one pooled
// connection until it is released; ttl is ignored because the lock lives as long as the session.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

func (l *AdvisoryLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for lock %s: %w", key, err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtextextended($1, 0))", key).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("query advisory lock %s: %w", key, err)
	}
	if !locked {
		conn.Release()
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}
	return &advisoryLease{conn: conn, key: key}, nil
}

type advisoryLease struct {
	mu   sync.Mutex
	conn *pgxpool.Conn
	key  string
}

func (l *advisoryLease) Refresh(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return fmt.Errorf("lease %s already released", l.key)
	}
	return nil
}

func (l *advisoryLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	if _, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtextextended($1, 0))", l.key); err != nil {
		// Closing the session drops every advisory lock it holds.
		_ = l.conn.Conn().Close(ctx)
		return fmt.Errorf("advisory unlock %s: %w", l.key, err)
	}
	return nil
}

// Package lock provides the per-(owner, business) lease that serializes time advancement.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned when another holder has the lease.
var ErrLocked = errors.New("simulation is already advancing for this owner and business")

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Locker obtains leases without waiting: if the key is held, Obtain fails with ErrLocked.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// SimulationKey names the lease guarding one owner's simulation of one business.
func SimulationKey(ownerID, businessID int) string {
	return fmt.Sprintf("lock:sim:%d:%d", ownerID, businessID)
}

// With obtains key, runs fn with the held lease and releases it. fn's error wins over a
// release error. fn should Refresh the lease if it may outlive ttl.
func With(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(ctx context.Context, lease Lease) error) (err error) {
	lease, err := l.Obtain(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = fmt.Errorf("release %s: %w", key, rerr)
		}
	}()
	return fn(ctx, lease)
}

// Package lock provides named, time-bounded mutual exclusion for scheduled jobs.
// A lease expires on its own after its TTL, so a crashed holder never blocks
// the next run forever.
package lock

import (
	"context"
	"time"

	"github.com/allisson/archivist/internal/errors"
)

// ErrNotHeld indicates the lease expired or was taken over before release.
var ErrNotHeld = errors.Wrap(errors.ErrConflict, "lock not held")

// Locker acquires named leases.
type Locker interface {
	// TryAcquire returns a lease, or nil when another holder owns name.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock.
type Lease struct {
	Name    string
	token   string
	release func(ctx context.Context, name, token string) error
}

// Release frees the lease. It returns ErrNotHeld when the lease already expired.
func (l *Lease) Release(ctx context.Context) error {
	return l.release(ctx, l.Name, l.token)
}

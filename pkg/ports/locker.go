package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards read-modify-write cycles on a source, so several
// holon processes editing the same file do not lose each other's writes.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock lapses after
	// ttl when the holder dies without calling the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

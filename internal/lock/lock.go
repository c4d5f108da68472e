// Package lock provides the mutual-exclusion primitive shared by all worker
// processes. The backing store only needs set-if-absent-with-expiry and
// delete semantics, so any key-value store can implement Locker.
package lock

import (
	"context"
	"time"
)

// Locker is a distributed lock with an expiry to prevent permanent deadlock
// when a holder crashes. The value stored under the key is irrelevant;
// existence means held.
type Locker interface {
	// TryAcquire returns true when the caller now holds the key. A false
	// return is not an error: another owner is running.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release deletes the key so a future run can acquire it.
	Release(ctx context.Context, key string) error
}

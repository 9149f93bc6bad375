// Package lock declares the per-(tenant,participant) advisory lock seam
// used to serialize arbitration (spec §5's ordering guarantee: two
// messages from the same participant arriving concurrently must not both
// decide "start a new workflow"). Grounded on the teacher's own use of
// github.com/redis/go-redis/v9 (registry/registry.go) for a shared,
// distributed coordination client.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned by TryLock when another holder already owns the
// key.
var ErrLockHeld = errors.New("lock: held by another owner")

// Locker acquires and releases advisory locks keyed by an arbitrary
// string (this repo always keys on "tenant:participant"). Implementations:
// redislock (production, multi-process) and inmemlock (tests,
// single-process).
type Locker interface {
	// TryLock attempts to acquire key for ttl, returning ErrLockHeld if
	// already held. The returned token must be passed to Unlock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	// Unlock releases key if token matches the current holder; releasing
	// an already-expired or mismatched lock is a no-op, not an error.
	Unlock(ctx context.Context, key, token string) error
}

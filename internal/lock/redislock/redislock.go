// Package redislock implements internal/lock.Locker on
// github.com/redis/go-redis/v9, the production backend for multi-process
// deployments. Grounded on the teacher's own use of go-redis for shared
// coordination state (registry/registry.go's redis.Client field), applied
// here to SET NX PX / compare-and-delete instead of the registry's
// presence tracking.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/convoflow/workflow-engine/internal/lock"
)

// unlockScript deletes the key only if it still holds our token, avoiding
// a race where we'd otherwise delete a lock some other holder acquired
// after ours expired.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Locker is a Redis-backed advisory lock.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

// New wraps an existing redis.Client.
func New(client *redis.Client) *Locker {
	return &Locker{client: client, script: redis.NewScript(unlockScript)}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redislock: setnx: %w", err)
	}
	if !ok {
		return "", lock.ErrLockHeld
	}
	return token, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redislock: unlock: %w", err)
	}
	return nil
}

var _ lock.Locker = (*Locker)(nil)

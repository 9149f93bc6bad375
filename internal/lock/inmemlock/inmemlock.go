// Package inmemlock implements internal/lock.Locker with an in-process
// mutex map, for tests and single-process deployments.
package inmemlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/lock"
)

type entry struct {
	token   string
	expires time.Time
}

// Locker is an in-process advisory lock keyed by string.
type Locker struct {
	mu      sync.Mutex
	holders map[string]entry
}

// New constructs an empty Locker.
func New() *Locker {
	return &Locker{holders: make(map[string]entry)}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if existing, ok := l.holders[key]; ok && existing.expires.After(now) {
		return "", lock.ErrLockHeld
	}
	token := uuid.NewString()
	l.holders[key] = entry{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.holders[key]; ok && existing.token == token {
		delete(l.holders, key)
	}
	return nil
}

var _ lock.Locker = (*Locker)(nil)

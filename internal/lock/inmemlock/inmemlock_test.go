package inmemlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/lock"
	"github.com/convoflow/workflow-engine/internal/lock/inmemlock"
)

func TestTryLockRejectsSecondHolderUntilUnlocked(t *testing.T) {
	l := inmemlock.New()
	ctx := context.Background()

	token, err := l.TryLock(ctx, "t1:+1555", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "t1:+1555", time.Minute)
	require.ErrorIs(t, err, lock.ErrLockHeld)

	require.NoError(t, l.Unlock(ctx, "t1:+1555", token))

	_, err = l.TryLock(ctx, "t1:+1555", time.Minute)
	require.NoError(t, err)
}

func TestTryLockExpiresAfterTTL(t *testing.T) {
	l := inmemlock.New()
	ctx := context.Background()

	_, err := l.TryLock(ctx, "t1:+1555", 20*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := l.TryLock(ctx, "t1:+1555", time.Minute)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

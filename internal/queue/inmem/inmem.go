// Package inmem implements internal/queue.Queue with an in-process
// channel, for tests and single-process deployments. Grounded on the
// teacher's own in-memory queue test double (a buffered channel fed by
// Enqueue, drained by a Consume loop) generalized with delayed delivery
// via time.AfterFunc.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/convoflow/workflow-engine/internal/queue"
)

// Queue is an in-process task queue bounded by the channel buffer size
// given to New; Enqueue blocks while the buffer is full.
type Queue struct {
	mu     sync.Mutex
	tasks  chan queue.Task
	closed bool
}

// New constructs a Queue with the given channel buffer size.
func New(buffer int) *Queue {
	return &Queue{tasks: make(chan queue.Task, buffer)}
}

func (q *Queue) Enqueue(ctx context.Context, task queue.Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) EnqueueDelayed(ctx context.Context, task queue.Task, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, task)
	}
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}
		_ = q.Enqueue(context.Background(), task)
	})
	return nil
}

func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-q.tasks:
			if !ok {
				return nil
			}
			_ = handler(ctx, task)
		}
	}
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.tasks)
	return nil
}

var _ queue.Queue = (*Queue)(nil)

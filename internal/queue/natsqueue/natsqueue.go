// Package natsqueue implements internal/queue.Queue on top of
// github.com/nats-io/nats.go (core NATS, no persistence; a delayed task
// waits in an in-process timer), the multi-worker backend used by the
// CLI's "worker" subcommand and by the non-Temporal dispatch path for
// time_delay resumption. Grounded on the connect/publish/queue-subscribe
// shape shown in the pack's NATS test client (core NATS pub/sub with a
// named queue group so multiple workers load-balance one subject).
package natsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/convoflow/workflow-engine/internal/queue"
)

// Queue publishes/subscribes on a single NATS subject using a queue group
// so that exactly one worker in the group handles each task.
type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
}

// Options configures a Queue.
type Options struct {
	URL        string
	Subject    string
	QueueGroup string
}

// New connects to NATS and returns a Queue bound to opts.Subject.
func New(opts Options) (*Queue, error) {
	if opts.Subject == "" {
		return nil, fmt.Errorf("natsqueue: subject is required")
	}
	nc, err := nats.Connect(opts.URL, nats.Name("workflow-engine"), nats.MaxReconnects(5), nats.ReconnectWait(time.Second))
	if err != nil {
		return nil, fmt.Errorf("natsqueue: connect: %w", err)
	}
	queueGroup := opts.QueueGroup
	if queueGroup == "" {
		queueGroup = "workflow-engine-workers"
	}
	return &Queue{conn: nc, subject: opts.Subject, queueGroup: queueGroup}, nil
}

func (q *Queue) Enqueue(ctx context.Context, task queue.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("natsqueue: marshal task: %w", err)
	}
	return q.conn.Publish(q.subject, data)
}

// EnqueueDelayed schedules publication after delay. Core NATS has no
// native delayed-delivery primitive, so this schedules the publish with a
// local timer — acceptable for the in-process worker that owns this
// connection; a deployment needing delay to survive worker restart should
// route through a JetStream stream with a redelivery backoff policy
// instead (same Queue interface, a different concrete implementation).
func (q *Queue) EnqueueDelayed(ctx context.Context, task queue.Task, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, task)
	}
	time.AfterFunc(delay, func() {
		_ = q.Enqueue(context.Background(), task)
	})
	return nil
}

func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		var task queue.Task
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			return
		}
		_ = handler(ctx, task)
	})
	if err != nil {
		return fmt.Errorf("natsqueue: subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return ctx.Err()
}

func (q *Queue) Close() error {
	q.conn.Drain()
	return nil
}

var _ queue.Queue = (*Queue)(nil)

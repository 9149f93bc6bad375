// Package temporalengine implements internal/engine.Engine on
// go.temporal.io/sdk, the durable production backend for C4: one Temporal
// workflow per Execution, node steps run as activities, suspension
// expressed as a signal-wait (workflow.GetSignalChannel). time_delay uses
// no Temporal timer: the dispatcher hands the delay to internal/queue and
// waits on a signal. Grounded structurally on the
// teacher's own runtime/agent/engine/temporal adapter (Options carrying
// either a pre-built client.Client or client.Options, one worker per task
// queue, workflow/activity registration wrapping the generic
// engine.WorkflowContext/ActivityFunc signatures around Temporal's own).
//
// This adapter deliberately omits the teacher's OTEL tracing/metrics
// interceptor wiring (temporalotel) — this repo's telemetry is carried
// through internal/telemetry instead (see DESIGN.md); wiring two parallel
// instrumentation stacks onto the same workflow has no SPEC_FULL.md
// component to justify it.
package temporalengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/convoflow/workflow-engine/internal/engine"
)

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is a pre-configured Temporal client. If nil, ClientOptions is
	// used to construct a lazy client.
	Client client.Client
	// ClientOptions builds the client when Client is nil.
	ClientOptions *client.Options
	// TaskQueue is the task queue the worker listens on and new workflow
	// executions are started on.
	TaskQueue string
}

// Engine is the Temporal-backed engine.Engine implementation.
type Engine struct {
	client      client.Client
	closeClient bool
	taskQueue   string

	mu     sync.Mutex
	worker worker.Worker
}

// New constructs a Temporal engine adapter bound to a single task queue.
func New(opts Options) (*Engine, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporalengine: task queue is required")
	}
	cli := opts.Client
	closeClient := false
	if cli == nil {
		if opts.ClientOptions == nil {
			return nil, fmt.Errorf("temporalengine: client options are required when Client is nil")
		}
		var err error
		cli, err = client.NewLazyClient(*opts.ClientOptions)
		if err != nil {
			return nil, fmt.Errorf("temporalengine: create client: %w", err)
		}
		closeClient = true
	}
	return &Engine{
		client:      cli,
		closeClient: closeClient,
		taskQueue:   opts.TaskQueue,
		worker:      worker.New(cli, opts.TaskQueue, worker.Options{}),
	}, nil
}

func (e *Engine) RegisterWorkflow(ctx context.Context, def engine.WorkflowDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("temporalengine: workflow name cannot be empty")
	}
	e.worker.RegisterWorkflowWithOptions(func(tctx workflow.Context, executionID string) (any, error) {
		return def.Handler(newWorkflowContext(tctx), executionID)
	}, workflow.RegisterOptions{Name: def.Name})
	return nil
}

func (e *Engine) RegisterActivity(ctx context.Context, def engine.ActivityDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("temporalengine: activity name cannot be empty")
	}
	e.worker.RegisterActivityWithOptions(func(actx context.Context, input any) (any, error) {
		return def.Handler(actx, input)
	}, activity.RegisterOptions{Name: def.Name})
	return nil
}

// StartWorker begins processing the configured task queue. Call once
// after all RegisterWorkflow/RegisterActivity calls complete.
func (e *Engine) StartWorker(ctx context.Context) error {
	return e.worker.Start()
}

// Stop gracefully shuts down the worker and, if this Engine owns the
// client, closes it too.
func (e *Engine) Stop() {
	e.worker.Stop()
	if e.closeClient {
		e.client.Close()
	}
}

func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        req.ID,
		TaskQueue: e.taskQueue,
	}, req.Workflow, req.Input)
	if err != nil {
		return nil, fmt.Errorf("temporalengine: start workflow: %w", err)
	}
	return &handle{client: e.client, run: run}, nil
}

// SignalWorkflow delivers a signal to a running workflow by ID, using
// Temporal's own by-ID client call rather than a cached handle — the
// dispatcher process delivering an inbound reply is generally not the
// one that called StartWorkflow for the suspended execution.
func (e *Engine) SignalWorkflow(ctx context.Context, workflowID, signalName string, payload any) error {
	return e.client.SignalWorkflow(ctx, workflowID, "", signalName, payload)
}

var _ engine.Engine = (*Engine)(nil)

type handle struct {
	client client.Client
	run    client.WorkflowRun
}

func (h *handle) Wait(ctx context.Context, out any) error {
	return h.run.Get(ctx, out)
}

func (h *handle) Signal(ctx context.Context, name string, payload any) error {
	return h.client.SignalWorkflow(ctx, h.run.GetID(), h.run.GetRunID(), name, payload)
}

func (h *handle) Cancel(ctx context.Context) error {
	return h.client.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}

// workflowContext adapts Temporal's workflow.Context to engine.WorkflowContext.
type workflowContext struct {
	ctx workflow.Context
}

func newWorkflowContext(ctx workflow.Context) *workflowContext { return &workflowContext{ctx: ctx} }

func (w *workflowContext) Context() context.Context {
	// workflow.Context is not a context.Context; workflow code must use
	// Context() only to satisfy signatures that need a context value
	// (e.g. passing through to ExecuteActivity's ctx parameter, which this
	// adapter ignores in favor of its own workflow.Context).
	return context.Background()
}

func (w *workflowContext) WorkflowID() string { return workflow.GetInfo(w.ctx).WorkflowExecution.ID }
func (w *workflowContext) RunID() string      { return workflow.GetInfo(w.ctx).WorkflowExecution.RunID }
func (w *workflowContext) Now() time.Time     { return workflow.Now(w.ctx) }

func (w *workflowContext) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, out any) error {
	actx := workflow.WithActivityOptions(w.ctx, workflow.ActivityOptions{
		StartToCloseTimeout: req.Timeout,
	})
	fut := workflow.ExecuteActivity(actx, req.Name, req.Input)
	return fut.Get(actx, out)
}

func (w *workflowContext) SignalChannel(name string) engine.SignalChannel {
	return signalChannel{ctx: w.ctx, ch: workflow.GetSignalChannel(w.ctx, name)}
}

type signalChannel struct {
	ctx workflow.Context
	ch  workflow.ReceiveChannel
}

func (s signalChannel) Receive(ctx context.Context, out any) (bool, error) {
	more := s.ch.Receive(s.ctx, out)
	return more, nil
}

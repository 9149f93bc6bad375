// Package inmemengine is a deterministic, single-process implementation of
// internal/engine.Engine for tests: it runs the workflow handler directly
// in a goroutine, executing activities synchronously against the
// registered handler map. No replay, no persistence — it exists so
// dispatcher/arbitration/DAG tests can exercise the full engine.Engine
// seam without a live Temporal server, mirroring the teacher's own
// runtime/agent/engine/inmem test adapter.
package inmemengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/engine"
)

// Engine is the in-memory engine.Engine implementation.
type Engine struct {
	mu         sync.Mutex
	workflows  map[string]engine.WorkflowFunc
	activities map[string]engine.ActivityFunc
	signals    map[string]map[string]chan any // workflowID -> signal name -> channel
}

// New constructs an empty Engine.
func New() *Engine {
	return &Engine{
		workflows:  make(map[string]engine.WorkflowFunc),
		activities: make(map[string]engine.ActivityFunc),
		signals:    make(map[string]map[string]chan any),
	}
}

func (e *Engine) RegisterWorkflow(ctx context.Context, def engine.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflows[def.Name] = def.Handler
	return nil
}

func (e *Engine) RegisterActivity(ctx context.Context, def engine.ActivityDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activities[def.Name] = def.Handler
	return nil
}

func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	e.mu.Lock()
	handler, ok := e.workflows[req.Workflow]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("inmemengine: workflow %q not registered", req.Workflow)
	}
	e.signals[req.ID] = make(map[string]chan any)
	e.mu.Unlock()

	wctx := &workflowContext{engine: e, id: req.ID, runID: uuid.NewString()}

	resultCh := make(chan result, 1)
	go func() {
		val, err := handler(wctx, req.Input)
		resultCh <- result{val: val, err: err}
	}()

	return &handle{resultCh: resultCh, engine: e, id: req.ID}, nil
}

type result struct {
	val any
	err error
}

type handle struct {
	resultCh <-chan result
	engine   *Engine
	id       string
}

func (h *handle) Wait(ctx context.Context, out any) error {
	select {
	case r := <-h.resultCh:
		if r.err != nil {
			return r.err
		}
		return assign(out, r.val)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handle) Signal(ctx context.Context, name string, payload any) error {
	h.engine.mu.Lock()
	chans, ok := h.engine.signals[h.id]
	if !ok {
		h.engine.mu.Unlock()
		return fmt.Errorf("inmemengine: unknown workflow %q", h.id)
	}
	ch, ok := chans[name]
	if !ok {
		ch = make(chan any, 8)
		chans[name] = ch
	}
	h.engine.mu.Unlock()

	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handle) Cancel(ctx context.Context) error { return nil }

func (e *Engine) SignalWorkflow(ctx context.Context, workflowID, signalName string, payload any) error {
	e.mu.Lock()
	chans, ok := e.signals[workflowID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("inmemengine: unknown workflow %q", workflowID)
	}
	ch, ok := chans[signalName]
	if !ok {
		ch = make(chan any, 8)
		chans[signalName] = ch
	}
	e.mu.Unlock()

	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type workflowContext struct {
	engine *Engine
	id     string
	runID  string
}

func (w *workflowContext) Context() context.Context { return context.Background() }
func (w *workflowContext) WorkflowID() string        { return w.id }
func (w *workflowContext) RunID() string             { return w.runID }
func (w *workflowContext) Now() time.Time            { return time.Now() }

func (w *workflowContext) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, out any) error {
	w.engine.mu.Lock()
	handler, ok := w.engine.activities[req.Name]
	w.engine.mu.Unlock()
	if !ok {
		return fmt.Errorf("inmemengine: activity %q not registered", req.Name)
	}
	val, err := handler(ctx, req.Input)
	if err != nil {
		return err
	}
	return assign(out, val)
}

func (w *workflowContext) SignalChannel(name string) engine.SignalChannel {
	w.engine.mu.Lock()
	chans := w.engine.signals[w.id]
	ch, ok := chans[name]
	if !ok {
		ch = make(chan any, 8)
		chans[name] = ch
	}
	w.engine.mu.Unlock()
	return signalChannel{ch: ch}
}

type signalChannel struct{ ch chan any }

func (s signalChannel) Receive(ctx context.Context, out any) (bool, error) {
	select {
	case val := <-s.ch:
		return true, assign(out, val)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// assign copies val into the pointer out, when out is non-nil and a
// compatible pointer; used because WorkflowFunc/ActivityFunc return `any`
// rather than a generic type.
func assign(out, val any) error {
	if out == nil || val == nil {
		return nil
	}
	switch p := out.(type) {
	case *any:
		*p = val
		return nil
	default:
		return fmt.Errorf("inmemengine: unsupported result target %T; use *any", out)
	}
}

var _ engine.Engine = (*Engine)(nil)

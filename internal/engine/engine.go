// Package engine abstracts the durable execution backend driving C4's
// dispatcher, so the dispatcher can target Temporal in production and a
// deterministic in-memory engine in tests without changing any call site.
// Grounded structurally on the teacher's own runtime/agent/engine package
// (Engine/WorkflowContext/Future/ActivityRequest split), narrowed from the
// teacher's generic agent-workflow shape to this domain's one workflow
// kind: running a single Execution's node steps to completion or
// suspension.
package engine

import (
	"context"
	"time"
)

type (
	// Engine registers the one workflow and the activities this repo needs
	// and starts executions. Implementations: inmemengine (tests, single
	// process) and temporalengine (durable, production).
	Engine interface {
		// RegisterWorkflow registers the execution-runner workflow. Called
		// once during startup before StartWorkflow is used.
		RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error
		// RegisterActivity registers one named activity. Called once per
		// activity during startup.
		RegisterActivity(ctx context.Context, def ActivityDefinition) error
		// StartWorkflow begins running req.Workflow for a new Execution and
		// returns a handle to it. A suspended Execution is resumed through
		// SignalWorkflow, not by starting it again.
		StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
		// SignalWorkflow delivers a signal to an already-running workflow by
		// ID, without requiring the caller to hold the WorkflowHandle
		// StartWorkflow returned — the dispatcher process handling an
		// inbound reply is rarely the same goroutine (or process) that
		// suspended the execution. Temporal's client.SignalWorkflow has this
		// exact shape natively; inmemengine looks the ID up in its own
		// registry.
		SignalWorkflow(ctx context.Context, workflowID, signalName string, payload any) error
	}

	// WorkflowDefinition binds a workflow handler to a logical name.
	WorkflowDefinition struct {
		Name    string
		Handler WorkflowFunc
	}

	// WorkflowFunc is the execution-runner entry point: given a
	// WorkflowContext and the initiating Execution ID, it drives the DAG
	// to completion or suspension. Must be deterministic under replay —
	// all I/O happens via ExecuteActivity, never directly.
	WorkflowFunc func(wctx WorkflowContext, executionID string) (any, error)

	// WorkflowContext exposes engine operations to the workflow handler.
	WorkflowContext interface {
		Context() context.Context
		WorkflowID() string
		RunID() string
		// ExecuteActivity runs one node step and blocks for its result.
		ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error
		// SignalChannel returns the channel an inbound "resume" signal
		// (a correlated reply arriving while this execution is suspended)
		// is delivered on.
		SignalChannel(name string) SignalChannel
		// Now returns a replay-safe current time.
		Now() time.Time
	}

	// SignalChannel lets a suspended workflow wait for an external signal.
	SignalChannel interface {
		Receive(ctx context.Context, out any) (bool, error)
	}

	// ActivityDefinition registers the node-step activity handler.
	ActivityDefinition struct {
		Name    string
		Handler ActivityFunc
	}

	// ActivityFunc executes a single node step, performing whatever I/O
	// the step requires (LLM calls, store writes, HTTP calls).
	ActivityFunc func(ctx context.Context, input any) (any, error)

	// WorkflowStartRequest describes how to launch or resume an
	// Execution's workflow.
	WorkflowStartRequest struct {
		ID       string // Execution.ID, also the workflow's idempotency key
		Workflow string
		Input    string // Execution.ID passed through to WorkflowFunc
	}

	// ActivityRequest schedules one node-step activity invocation.
	ActivityRequest struct {
		Name    string
		Input   any
		Timeout time.Duration
	}

	// WorkflowHandle lets callers observe or signal a started workflow.
	WorkflowHandle interface {
		Wait(ctx context.Context, result any) error
		Signal(ctx context.Context, name string, payload any) error
		Cancel(ctx context.Context) error
	}
)

// Package nodeexec implements C2: one Executor per workflow.NodeKind, the
// Go-native replacement for workflow_engine.py's execute_node_logic
// if/elif ladder. Each node kind gets its own file and its own type, with
// dispatch performed through a Registry keyed by workflow.NodeKind rather
// than a string switch (design note §9).
package nodeexec

import (
	"context"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Result is what an Executor hands back to the dispatcher.
type Result struct {
	// Output is merged into the execution's context document.
	Output map[string]any
	// Suspend requests that the dispatcher park the execution and record
	// node.ID as the resume point (wait_for_reply, and appointment_booking
	// while proposing slots).
	Suspend bool
	// DelaySeconds, when > 0, asks the dispatcher to defer dispatching the
	// next node instead of suspending the execution outright (time_delay).
	DelaySeconds int
}

// Executor runs the business logic of a single node kind.
type Executor interface {
	Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	return f(ctx, node, doc)
}

// Registry maps a NodeKind to the Executor that handles it.
type Registry struct {
	executors map[workflow.NodeKind]Executor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[workflow.NodeKind]Executor)}
}

// Register binds an Executor to a NodeKind, overwriting any previous
// binding.
func (r *Registry) Register(kind workflow.NodeKind, exec Executor) {
	r.executors[kind] = exec
}

// Lookup returns the Executor bound to kind, if any.
func (r *Registry) Lookup(kind workflow.NodeKind) (Executor, bool) {
	exec, ok := r.executors[kind]
	return exec, ok
}

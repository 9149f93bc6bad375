package nodeexec

import (
	"context"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// StartExecutor handles workflow.NodeStart. It carries no business logic
// of its own; it exists so the registry always has an entry for every
// kind in a validated workflow.
type StartExecutor struct{}

func (StartExecutor) Execute(context.Context, workflow.Node, ctxdoc.Document) (Result, error) {
	return Result{Output: map[string]any{"status": "started"}}, nil
}

// EndExecutor handles workflow.NodeEnd.
type EndExecutor struct{}

func (EndExecutor) Execute(context.Context, workflow.Node, ctxdoc.Document) (Result, error) {
	return Result{Output: map[string]any{}}, nil
}

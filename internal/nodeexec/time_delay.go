package nodeexec

import (
	"context"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// TimeDelayExecutor handles workflow.NodeTimeDelay: it returns a signal
// telling the dispatcher to defer dispatching the next node by the
// configured number of seconds, rather than sleeping inline. Ported from
// workflow_engine.py's "time_delay" node_type.
type TimeDelayExecutor struct{}

func (TimeDelayExecutor) Execute(_ context.Context, node workflow.Node, _ ctxdoc.Document) (Result, error) {
	seconds := 0
	switch v := node.Config["seconds"].(type) {
	case int:
		seconds = v
	case float64:
		seconds = int(v)
	}
	return Result{
		Output:       map[string]any{"orchestration_signal": "delay", "seconds": seconds},
		DelaySeconds: seconds,
	}, nil
}

// WaitForReplyExecutor handles workflow.NodeWaitForReply: it signals the
// dispatcher to suspend the execution with this node as the resume point
// (spec §4.2). Ported from workflow_engine.py's "wait_for_reply" node_type.
type WaitForReplyExecutor struct{}

func (WaitForReplyExecutor) Execute(_ context.Context, node workflow.Node, _ ctxdoc.Document) (Result, error) {
	return Result{
		Output:  map[string]any{"orchestration_signal": "suspend", "resume_node_id": node.ID},
		Suspend: true,
	}, nil
}

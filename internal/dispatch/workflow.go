package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/dag"
	"github.com/convoflow/workflow-engine/internal/engine"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/queue"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// runSnapshot is what activityLoadRun hands the workflow handler: the
// Execution's current state plus the full authored DAG it runs against.
// The DAG itself never changes mid-run, so loading it once up front keeps
// every later ExecuteActivity call scoped to a single node.
type runSnapshot struct {
	Workflow  workflow.Workflow
	Execution workflow.Execution
}

type runNodeInput struct {
	ExecutionID string
	Node        workflow.Node
}

type advanceInput struct {
	ExecutionID   string
	CurrentNodeID string
	Result        nodeexec.Result
}

type advanceResult struct {
	Suspended    bool
	Completed    bool
	NextNodeIDs  []string
	DelaySeconds int
}

type resumeInput struct {
	ExecutionID string
	ReplyBody   string
	Trigger     map[string]any
}

type resumeOutput struct {
	NextNodeIDs []string
}

type scheduleDelayInput struct {
	ExecutionID string
	NextNodeIDs []string
	Seconds     int
	SignalName  string
}

// runExecution is the engine.WorkflowFunc registered under WorkflowName.
// It drives one Execution's node steps to completion or suspension,
// mirroring workflow_engine.py's process_node_async loop but expressed as
// a single durable function instead of one re-dispatched Celery task per
// node visit: every node step, context merge, and persistence write
// happens inside an activity so the loop itself stays a deterministic
// replay of nodeIDs, exactly the ExecuteActivity-only discipline
// engine.WorkflowFunc's doc comment requires.
func (d *Dispatcher) runExecution(wctx engine.WorkflowContext, executionID string) (any, error) {
	ctx := wctx.Context()

	var rawSnap any
	if err := wctx.ExecuteActivity(ctx, engine.ActivityRequest{Name: actLoadRun, Input: executionID}, &rawSnap); err != nil {
		return nil, err
	}
	snap, ok := rawSnap.(runSnapshot)
	if !ok {
		return nil, fmt.Errorf("dispatch: %s returned unexpected type %T", actLoadRun, rawSnap)
	}

	startNode, ok := findStartNode(snap.Workflow)
	if !ok {
		return nil, fmt.Errorf("dispatch: workflow %s has no start node", snap.Workflow.ID)
	}

	pending := []string{startNode.ID}
	for len(pending) > 0 {
		nodeID := pending[0]
		pending = pending[1:]

		node, ok := nodeByID(snap.Workflow, nodeID)
		if !ok {
			continue
		}

		var rawResult any
		if err := wctx.ExecuteActivity(ctx, engine.ActivityRequest{Name: actRunNode, Input: runNodeInput{ExecutionID: executionID, Node: node}}, &rawResult); err != nil {
			return nil, err
		}
		result, _ := rawResult.(nodeexec.Result)

		var rawAdv any
		if err := wctx.ExecuteActivity(ctx, engine.ActivityRequest{Name: actAdvance, Input: advanceInput{ExecutionID: executionID, CurrentNodeID: nodeID, Result: result}}, &rawAdv); err != nil {
			return nil, err
		}
		adv, _ := rawAdv.(advanceResult)

		switch {
		case adv.Suspended:
			var rawReply any
			if _, err := wctx.SignalChannel("resume").Receive(ctx, &rawReply); err != nil {
				return nil, err
			}
			reply, _ := rawReply.(resumeSignal)

			var rawResume any
			if err := wctx.ExecuteActivity(ctx, engine.ActivityRequest{Name: actApplyResume, Input: resumeInput{ExecutionID: executionID, ReplyBody: reply.Body, Trigger: reply.Trigger}}, &rawResume); err != nil {
				return nil, err
			}
			resumeOut, _ := rawResume.(resumeOutput)
			pending = append(pending, resumeOut.NextNodeIDs...)

		case adv.Completed:
			// terminal: execution already marked completed by activityAdvance.

		case adv.DelaySeconds > 0:
			// time_delay: park on a node-scoped signal instead of sleeping
			// inline; the timer lives in internal/queue, not in this loop.
			// Both queue backends keep that timer in process memory, so a
			// delay still pending when the process stops is lost.
			signalName := "continue:" + nodeID
			if err := wctx.ExecuteActivity(ctx, engine.ActivityRequest{
				Name: actScheduleDelay,
				Input: scheduleDelayInput{
					ExecutionID: executionID,
					NextNodeIDs: adv.NextNodeIDs,
					Seconds:     adv.DelaySeconds,
					SignalName:  signalName,
				},
			}, nil); err != nil {
				return nil, err
			}
			if _, err := wctx.SignalChannel(signalName).Receive(ctx, nil); err != nil {
				return nil, err
			}
			pending = append(pending, adv.NextNodeIDs...)

		default:
			pending = append(pending, adv.NextNodeIDs...)
		}
	}

	return map[string]any{"status": "completed"}, nil
}

func (d *Dispatcher) activityLoadRun(ctx context.Context, input any) (any, error) {
	executionID, _ := input.(string)
	exec, err := d.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load execution %s: %w", executionID, err)
	}
	wf, err := d.Workflows.Get(ctx, exec.TenantID, exec.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load workflow %s: %w", exec.WorkflowID, err)
	}
	return runSnapshot{Workflow: *wf, Execution: *exec}, nil
}

func (d *Dispatcher) activityRunNode(ctx context.Context, input any) (any, error) {
	in, _ := input.(runNodeInput)
	exec, err := d.Executions.Get(ctx, in.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load execution %s: %w", in.ExecutionID, err)
	}

	step := &workflow.Step{
		ExecutionID: in.ExecutionID,
		NodeID:      in.Node.ID,
		Status:      workflow.StepRunning,
		Input:       exec.Context,
		StartedAt:   d.now(),
	}
	if err := d.Steps.Append(ctx, step); err != nil {
		return nil, fmt.Errorf("dispatch: append step: %w", err)
	}
	d.publish(ctx, hooks.Event{Type: hooks.StepStarted, TenantID: exec.TenantID, ExecutionID: in.ExecutionID, NodeID: in.Node.ID})

	executor, ok := d.Registry.Lookup(in.Node.Kind)
	if !ok {
		return d.failStep(ctx, step, fmt.Errorf("no executor registered for node kind %q", in.Node.Kind))
	}

	result, err := executor.Execute(ctx, in.Node, ctxdoc.Document(exec.Context))
	if err != nil {
		return d.failStep(ctx, step, err)
	}

	completedAt := d.now()
	step.Output = result.Output
	step.CompletedAt = &completedAt
	if result.Suspend {
		step.Status = workflow.StepSuspended
	} else {
		step.Status = workflow.StepCompleted
	}
	if err := d.Steps.Update(ctx, step); err != nil {
		return nil, fmt.Errorf("dispatch: update step: %w", err)
	}
	d.publish(ctx, hooks.Event{Type: hooks.StepCompleted, TenantID: exec.TenantID, ExecutionID: in.ExecutionID, NodeID: in.Node.ID})

	return result, nil
}

func (d *Dispatcher) failStep(ctx context.Context, step *workflow.Step, cause error) (any, error) {
	completedAt := d.now()
	step.Status = workflow.StepFailed
	step.Error = cause.Error()
	step.CompletedAt = &completedAt
	if err := d.Steps.Update(ctx, step); err != nil {
		d.Log.Error(ctx, "dispatch: failed to record failed step", "step_id", step.ID, "error", err.Error())
	}
	return nil, fmt.Errorf("dispatch: node %s: %w", step.NodeID, cause)
}

// activityAdvance implements C4 steps 4-8 of the dispatch algorithm: merge
// the node's output into the execution context, mark the execution
// suspended/completed/running, and resolve DAG successors (C3).
func (d *Dispatcher) activityAdvance(ctx context.Context, input any) (any, error) {
	in, _ := input.(advanceInput)
	exec, err := d.Executions.Get(ctx, in.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load execution %s: %w", in.ExecutionID, err)
	}

	merged := ctxdoc.Document(exec.Context).Merge(stripOrchestrationSignal(in.Result.Output))
	exec.Context = map[string]any(merged)
	exec.Version++

	if in.Result.Suspend {
		exec.Status = workflow.StatusSuspended
		exec.ResumePayload = &workflow.ResumePayload{NodeID: in.CurrentNodeID}
		if err := d.Executions.Update(ctx, exec); err != nil {
			return nil, fmt.Errorf("dispatch: persist suspension: %w", err)
		}
		d.publish(ctx, hooks.Event{Type: hooks.ExecutionSuspended, TenantID: exec.TenantID, ExecutionID: in.ExecutionID, NodeID: in.CurrentNodeID})
		return advanceResult{Suspended: true}, nil
	}

	wf, err := d.Workflows.Get(ctx, exec.TenantID, exec.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load workflow %s: %w", exec.WorkflowID, err)
	}
	next := dag.Next(wf, in.CurrentNodeID, in.Result.Output)
	nextIDs := make([]string, len(next))
	for i, n := range next {
		nextIDs[i] = n.ID
	}

	if len(nextIDs) == 0 {
		completedAt := d.now()
		exec.Status = workflow.StatusCompleted
		exec.CompletedAt = &completedAt
		if err := d.Executions.Update(ctx, exec); err != nil {
			return nil, fmt.Errorf("dispatch: persist completion: %w", err)
		}
		d.publish(ctx, hooks.Event{Type: hooks.ExecutionCompleted, TenantID: exec.TenantID, ExecutionID: in.ExecutionID})
		return advanceResult{Completed: true}, nil
	}

	exec.Status = workflow.StatusRunning
	if err := d.Executions.Update(ctx, exec); err != nil {
		return nil, fmt.Errorf("dispatch: persist advance: %w", err)
	}
	return advanceResult{NextNodeIDs: nextIDs, DelaySeconds: in.Result.DelaySeconds}, nil
}

// activityApplyResume implements C6 item 1's resume half once arbitration
// has already chosen DecisionResume and signaled the workflow: merge the
// correlated reply into context, clear the suspension, and resolve the
// suspended node's successors using the synthetic {user_reply} output the
// original workflow_engine.py's check_and_resume_execution pretends the
// wait node just produced.
func (d *Dispatcher) activityApplyResume(ctx context.Context, input any) (any, error) {
	in, _ := input.(resumeInput)
	exec, err := d.Executions.Get(ctx, in.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load execution %s: %w", in.ExecutionID, err)
	}

	resumeNodeID := ""
	if exec.ResumePayload != nil {
		resumeNodeID = exec.ResumePayload.NodeID
	}

	merged := ctxdoc.Document(exec.Context).Merge(map[string]any{
		"latest_reply":   in.ReplyBody,
		"latest_trigger": in.Trigger,
	})
	exec.Context = map[string]any(merged)
	exec.Status = workflow.StatusRunning
	exec.ResumePayload = nil
	exec.Version++
	if err := d.Executions.Update(ctx, exec); err != nil {
		return nil, fmt.Errorf("dispatch: persist resume: %w", err)
	}

	wf, err := d.Workflows.Get(ctx, exec.TenantID, exec.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load workflow %s: %w", exec.WorkflowID, err)
	}
	next := dag.Next(wf, resumeNodeID, map[string]any{"user_reply": in.ReplyBody})
	ids := make([]string, len(next))
	for i, n := range next {
		ids[i] = n.ID
	}
	return resumeOutput{NextNodeIDs: ids}, nil
}

// activityScheduleDelay enqueues the delayed task a time_delay node asks
// for (spec §4.2); RunDelayWorker (below) consumes it and signals
// the workflow back once the delay elapses.
func (d *Dispatcher) activityScheduleDelay(ctx context.Context, input any) (any, error) {
	in, _ := input.(scheduleDelayInput)
	if d.Queue == nil {
		return nil, fmt.Errorf("dispatch: time_delay node requires a configured queue")
	}
	task := queue.Task{
		ExecutionID: in.ExecutionID,
		Payload: map[string]any{
			"signal_name":   in.SignalName,
			"next_node_ids": in.NextNodeIDs,
		},
	}
	if err := d.Queue.EnqueueDelayed(ctx, task, secondsToDuration(in.Seconds)); err != nil {
		return nil, fmt.Errorf("dispatch: schedule delay: %w", err)
	}
	return nil, nil
}

// RunDelayWorker consumes delayed time_delay continuations off the queue
// and signals the waiting execution back to life. Run it as a background
// goroutine alongside the engine worker.
func (d *Dispatcher) RunDelayWorker(ctx context.Context) error {
	if d.Queue == nil {
		return fmt.Errorf("dispatch: no queue configured")
	}
	return d.Queue.Consume(ctx, func(ctx context.Context, task queue.Task) error {
		signalName, _ := task.Payload["signal_name"].(string)
		if signalName == "" {
			return fmt.Errorf("dispatch: delayed task for execution %s missing signal_name", task.ExecutionID)
		}
		return d.Engine.SignalWorkflow(ctx, task.ExecutionID, signalName, nil)
	})
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func findStartNode(w workflow.Workflow) (workflow.Node, bool) {
	for _, n := range w.Nodes {
		if n.Kind == workflow.NodeStart {
			return n, true
		}
	}
	return workflow.Node{}, false
}

func nodeByID(w workflow.Workflow, id string) (workflow.Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return workflow.Node{}, false
}

// stripOrchestrationSignal drops the reserved orchestration_signal/
// resume_node_id keys before merging a node's output into the context
// document — those keys are C4's own signaling channel, not workflow
// state (spec §4.4 step 4: "merge output into context (minus the signal
// key)").
func stripOrchestrationSignal(output map[string]any) map[string]any {
	if output == nil {
		return nil
	}
	out := make(map[string]any, len(output))
	for k, v := range output {
		if k == "orchestration_signal" || k == "resume_node_id" {
			continue
		}
		out[k] = v
	}
	return out
}

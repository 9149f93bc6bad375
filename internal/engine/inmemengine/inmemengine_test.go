package inmemengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/engine"
	"github.com/convoflow/workflow-engine/internal/engine/inmemengine"
)

func TestWorkflowExecutesActivityAndReturnsResult(t *testing.T) {
	e := inmemengine.New()
	ctx := context.Background()

	require.NoError(t, e.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: "double",
		Handler: func(ctx context.Context, input any) (any, error) {
			n := input.(int)
			return n * 2, nil
		},
	}))

	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "doubler",
		Handler: func(wctx engine.WorkflowContext, executionID string) (any, error) {
			var out any
			if err := wctx.ExecuteActivity(wctx.Context(), engine.ActivityRequest{Name: "double", Input: 21}, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}))

	handle, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "wf-1", Workflow: "doubler", Input: "exec-1"})
	require.NoError(t, err)

	var result any
	require.NoError(t, handle.Wait(ctx, &result))
	require.Equal(t, 42, result)
}

func TestSignalChannelDeliversPayloadToWaitingWorkflow(t *testing.T) {
	e := inmemengine.New()
	ctx := context.Background()

	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "waiter",
		Handler: func(wctx engine.WorkflowContext, executionID string) (any, error) {
			var reply any
			ok, err := wctx.SignalChannel("resume").Receive(wctx.Context(), &reply)
			if err != nil || !ok {
				return nil, err
			}
			return reply, nil
		},
	}))

	handle, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "wf-2", Workflow: "waiter", Input: "exec-2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return handle.Signal(ctx, "resume", "hello") == nil
	}, time.Second, 10*time.Millisecond)

	var result any
	require.NoError(t, handle.Wait(ctx, &result))
	require.Equal(t, "hello", result)
}

func TestSignalWorkflowByIDDeliversWithoutTheOriginalHandle(t *testing.T) {
	e := inmemengine.New()
	ctx := context.Background()

	require.NoError(t, e.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "waiter",
		Handler: func(wctx engine.WorkflowContext, executionID string) (any, error) {
			var reply any
			ok, err := wctx.SignalChannel("resume").Receive(wctx.Context(), &reply)
			if err != nil || !ok {
				return nil, err
			}
			return reply, nil
		},
	}))

	handle, err := e.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "wf-3", Workflow: "waiter", Input: "exec-3"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.SignalWorkflow(ctx, "wf-3", "resume", "hi from another process") == nil
	}, time.Second, 10*time.Millisecond)

	var result any
	require.NoError(t, handle.Wait(ctx, &result))
	require.Equal(t, "hi from another process", result)
}

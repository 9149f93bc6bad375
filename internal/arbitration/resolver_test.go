package arbitration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/arbitration"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/trigger"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

type fakeExecutions struct {
	suspended []workflow.Execution
}

func (f *fakeExecutions) Create(context.Context, *workflow.Execution) error { return nil }
func (f *fakeExecutions) Get(context.Context, string) (*workflow.Execution, error) {
	return nil, store.ErrNotFound
}
func (f *fakeExecutions) Update(context.Context, *workflow.Execution) error { return nil }
func (f *fakeExecutions) ListSuspendedByTenant(context.Context, string) ([]workflow.Execution, error) {
	return f.suspended, nil
}
func (f *fakeExecutions) List(context.Context, string, string) ([]workflow.Execution, error) {
	return nil, nil
}

type fakeWorkflows struct {
	active []workflow.Workflow
}

func (f *fakeWorkflows) Create(context.Context, *workflow.Workflow) error { return nil }
func (f *fakeWorkflows) Get(context.Context, string, string) (*workflow.Workflow, error) {
	return nil, store.ErrNotFound
}
func (f *fakeWorkflows) ListActive(context.Context, string, ...workflow.TriggerKind) ([]workflow.Workflow, error) {
	return f.active, nil
}
func (f *fakeWorkflows) List(context.Context, string) ([]workflow.Workflow, error) { return nil, nil }
func (f *fakeWorkflows) Delete(context.Context, string, string) error              { return nil }

func TestResolveResumesOverStartingNewWorkflow(t *testing.T) {
	execs := &fakeExecutions{suspended: []workflow.Execution{
		{ID: "exec-1", Context: map[string]any{"trigger": map[string]any{"from_number": "+1555"}}},
	}}
	workflows := &fakeWorkflows{active: []workflow.Workflow{
		{ID: "wf-1", TriggerKind: workflow.TriggerKeyword, TriggerConfig: map[string]any{}},
	}}
	r := &arbitration.Resolver{Executions: execs, Workflows: workflows}

	outcome, err := r.Resolve(context.Background(), "t1", trigger.Event{Kind: "message_created", FromUser: "+1555", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, arbitration.DecisionResume, outcome.Decision)
	require.Equal(t, "exec-1", outcome.ExecutionID)
}

func TestResolveStartsMatchingWorkflowWhenNoSuspension(t *testing.T) {
	execs := &fakeExecutions{}
	workflows := &fakeWorkflows{active: []workflow.Workflow{
		{ID: "wf-1", TriggerKind: workflow.TriggerKeyword, TriggerConfig: map[string]any{"keyword": "pricing"}},
	}}
	r := &arbitration.Resolver{Executions: execs, Workflows: workflows}

	outcome, err := r.Resolve(context.Background(), "t1", trigger.Event{Kind: "message_created", FromUser: "+1555", Message: "what's your pricing"})
	require.NoError(t, err)
	require.Equal(t, arbitration.DecisionStart, outcome.Decision)
	require.Len(t, outcome.Workflows, 1)
}

func TestResolveFallsBackWhenNothingMatches(t *testing.T) {
	r := &arbitration.Resolver{Executions: &fakeExecutions{}, Workflows: &fakeWorkflows{}}

	outcome, err := r.Resolve(context.Background(), "t1", trigger.Event{Kind: "message_created", FromUser: "+1555", Message: "random chatter"})
	require.NoError(t, err)
	require.Equal(t, arbitration.DecisionFallback, outcome.Decision)
}

package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/arbitration"
	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/engine/inmemengine"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/llm"
	"github.com/convoflow/workflow-engine/internal/lock/inmemlock"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	queueinmem "github.com/convoflow/workflow-engine/internal/queue/inmem"
	"github.com/convoflow/workflow-engine/internal/sideeffects"
	"github.com/convoflow/workflow-engine/internal/store"
	storeinmem "github.com/convoflow/workflow-engine/internal/store/inmem"
	"github.com/convoflow/workflow-engine/internal/trigger"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// newRegistry builds a nodeexec.Registry covering every node kind the
// tests in this file exercise.
func newRegistry() *nodeexec.Registry {
	reg := nodeexec.NewRegistry()
	reg.Register(workflow.NodeStart, nodeexec.StartExecutor{})
	reg.Register(workflow.NodeEnd, nodeexec.EndExecutor{})
	reg.Register(workflow.NodeWaitForReply, nodeexec.WaitForReplyExecutor{})
	reg.Register(workflow.NodeTimeDelay, nodeexec.TimeDelayExecutor{})
	return reg
}

func TestHandleInboundMessageStartsMatchingWorkflow(t *testing.T) {
	st := storeinmem.New()
	eng := inmemengine.New()

	d := dispatch.New(dispatch.Dispatcher{
		Engine:     eng,
		Locker:     inmemlock.New(),
		Resolver:   &arbitration.Resolver{Executions: st.Executions(), Workflows: st.Workflows()},
		Registry:   newRegistry(),
		Tenants:    st.Tenants(),
		Workflows:  st.Workflows(),
		Executions: st.Executions(),
		Steps:      st.Steps(),
		Bus:        hooks.NewBus(),
	})
	ctx := context.Background()
	require.NoError(t, d.RegisterWithEngine(ctx))

	wf := &workflow.Workflow{
		TenantID:    "tenant-1",
		Name:        "greet",
		Active:      true,
		TriggerKind: workflow.TriggerKeyword,
		Nodes: []workflow.Node{
			{ID: "n1", Kind: workflow.NodeStart},
			{ID: "n2", Kind: workflow.NodeEnd},
		},
		Edges: []workflow.Edge{{Source: "n1", Target: "n2"}},
	}
	require.NoError(t, st.Workflows().Create(ctx, wf))
	st.SetSubscriptionStatus("tenant-1", "active")

	event := trigger.Event{Kind: "message_created", Message: "hello", FromUser: "+15551234", Channel: "whatsapp"}
	require.NoError(t, d.HandleInboundMessage(ctx, "tenant-1", event))

	require.Eventually(t, func() bool {
		execs, err := st.Executions().List(ctx, "tenant-1", wf.ID)
		return err == nil && len(execs) == 1 && execs[0].Status == workflow.StatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestHandleInboundMessageResumesSuspendedExecution(t *testing.T) {
	st := storeinmem.New()
	eng := inmemengine.New()

	d := dispatch.New(dispatch.Dispatcher{
		Engine:     eng,
		Locker:     inmemlock.New(),
		Resolver:   &arbitration.Resolver{Executions: st.Executions(), Workflows: st.Workflows()},
		Registry:   newRegistry(),
		Tenants:    st.Tenants(),
		Workflows:  st.Workflows(),
		Executions: st.Executions(),
		Steps:      st.Steps(),
		Bus:        hooks.NewBus(),
	})
	ctx := context.Background()
	require.NoError(t, d.RegisterWithEngine(ctx))

	// n1 (start) -> n2 (wait_for_reply) -> n3 (end)
	wf := &workflow.Workflow{
		TenantID:    "tenant-1",
		Name:        "qualify",
		Active:      true,
		TriggerKind: workflow.TriggerKeyword,
		Nodes: []workflow.Node{
			{ID: "n1", Kind: workflow.NodeStart},
			{ID: "n2", Kind: workflow.NodeWaitForReply},
			{ID: "n3", Kind: workflow.NodeEnd},
		},
		Edges: []workflow.Edge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n3"},
		},
	}
	require.NoError(t, st.Workflows().Create(ctx, wf))
	st.SetSubscriptionStatus("tenant-1", "active")

	first := trigger.Event{Kind: "message_created", Message: "start please", FromUser: "+15559999", Channel: "whatsapp"}
	require.NoError(t, d.HandleInboundMessage(ctx, "tenant-1", first))

	require.Eventually(t, func() bool {
		execs, err := st.Executions().List(ctx, "tenant-1", wf.ID)
		return err == nil && len(execs) == 1 && execs[0].Status == workflow.StatusSuspended
	}, time.Second, 10*time.Millisecond)

	reply := trigger.Event{Kind: "message_created", Message: "yes I am interested", FromUser: "+15559999", Channel: "whatsapp"}
	require.NoError(t, d.HandleInboundMessage(ctx, "tenant-1", reply))

	require.Eventually(t, func() bool {
		execs, err := st.Executions().List(ctx, "tenant-1", wf.ID)
		if err != nil || len(execs) != 1 {
			return false
		}
		exec := execs[0]
		return exec.Status == workflow.StatusCompleted && exec.Context["latest_reply"] == "yes I am interested"
	}, time.Second, 10*time.Millisecond)
}

func TestHandleInboundMessageDeferredByTimeDelay(t *testing.T) {
	st := storeinmem.New()
	eng := inmemengine.New()
	q := queueinmem.New(4)
	defer q.Close()

	d := dispatch.New(dispatch.Dispatcher{
		Engine:     eng,
		Queue:      q,
		Locker:     inmemlock.New(),
		Resolver:   &arbitration.Resolver{Executions: st.Executions(), Workflows: st.Workflows()},
		Registry:   newRegistry(),
		Tenants:    st.Tenants(),
		Workflows:  st.Workflows(),
		Executions: st.Executions(),
		Steps:      st.Steps(),
		Bus:        hooks.NewBus(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.RegisterWithEngine(ctx))

	go func() { _ = d.RunDelayWorker(ctx) }()

	wf := &workflow.Workflow{
		TenantID:    "tenant-1",
		Name:        "delayed_followup",
		Active:      true,
		TriggerKind: workflow.TriggerKeyword,
		Nodes: []workflow.Node{
			{ID: "n1", Kind: workflow.NodeStart},
			{ID: "n2", Kind: workflow.NodeTimeDelay, Config: map[string]any{"seconds": 1}},
			{ID: "n3", Kind: workflow.NodeEnd},
		},
		Edges: []workflow.Edge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n3"},
		},
	}
	require.NoError(t, st.Workflows().Create(ctx, wf))
	st.SetSubscriptionStatus("tenant-1", "active")

	event := trigger.Event{Kind: "message_created", Message: "start", FromUser: "+15550000", Channel: "whatsapp"}
	require.NoError(t, d.HandleInboundMessage(ctx, "tenant-1", event))

	require.Eventually(t, func() bool {
		execs, err := st.Executions().List(ctx, "tenant-1", wf.ID)
		return err == nil && len(execs) == 1 && execs[0].Status == workflow.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleInboundMessageFallsBackToAIChatbot(t *testing.T) {
	st := storeinmem.New()
	eng := inmemengine.New()

	gateway := llm.New([]llm.Provider{fakeProvider{name: "fake", reply: "Sure, we are open 9-5."}})

	var sentBody string
	emitter := &sideeffects.Emitter{
		Leads: st.Leads(),
		Bus:   hooks.NewBus(),
	}

	d := dispatch.New(dispatch.Dispatcher{
		Engine:        eng,
		Locker:        inmemlock.New(),
		Resolver:      &arbitration.Resolver{Executions: st.Executions(), Workflows: st.Workflows()},
		Registry:      newRegistry(),
		Emitter:       emitter,
		Tenants:       st.Tenants(),
		Workflows:     st.Workflows(),
		Executions:    st.Executions(),
		Steps:         st.Steps(),
		LLM:           gateway,
		Conversations: conversationCapture{inner: st.Conversations(), captured: &sentBody},
		Bus:           hooks.NewBus(),
	})
	ctx := context.Background()
	require.NoError(t, d.RegisterWithEngine(ctx))
	st.SetSubscriptionStatus("tenant-1", "active")

	event := trigger.Event{Kind: "message_created", Message: "what are your hours?", FromUser: "user-42", Channel: "web"}
	require.NoError(t, d.HandleInboundMessage(ctx, "tenant-1", event))

	require.Equal(t, "Sure, we are open 9-5.", sentBody)
}

// conversationCapture wraps a store.Conversations so the fallback test can
// assert on the body the dispatcher actually delivered, without adding an
// assertion hook to store.Conversations itself.
type conversationCapture struct {
	inner    store.Conversations
	captured *string
}

func (c conversationCapture) EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error) {
	return c.inner.EnsureConversation(ctx, tenantID, participant, channel)
}

func (c conversationCapture) StoreMessage(ctx context.Context, conversationID, role, body string) error {
	*c.captured = body
	return c.inner.StoreMessage(ctx, conversationID, role, body)
}

type fakeProvider struct {
	name  string
	reply string
}

func (f fakeProvider) Name() string { return f.name }
func (f fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return f.reply, nil
}

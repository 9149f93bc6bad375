package nodeexec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

type capturingSender struct {
	target, body string
	calls        int
}

func (c *capturingSender) Send(_ context.Context, _ string, target, body string) error {
	c.target, c.body = target, body
	c.calls++
	return nil
}

type failingSender struct{ err error }

func (f *failingSender) Send(context.Context, string, string, string) error { return f.err }

type fakeConversations struct {
	stored []string
}

func (f *fakeConversations) EnsureConversation(context.Context, string, string, string) (string, error) {
	return "conv-1", nil
}
func (f *fakeConversations) StoreMessage(_ context.Context, _, _, body string) error {
	f.stored = append(f.stored, body)
	return nil
}

func TestActionSendMessageViaChannel(t *testing.T) {
	sender := &capturingSender{}
	exec := nodeexec.ActionExecutor{Sender: sender, Conversations: &fakeConversations{}}

	doc := ctxdoc.Document{"trigger": map[string]any{"from_number": "+15551234"}}
	node := workflow.Node{Config: map[string]any{"template": "Hi {{trigger.from_number}}"}}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "sent", res.Output["action_result"])
	require.Equal(t, "+15551234", sender.target)
	require.Equal(t, 1, sender.calls)
}

func TestActionSendMessageFallsBackToWebStore(t *testing.T) {
	convos := &fakeConversations{}
	exec := nodeexec.ActionExecutor{Sender: &capturingSender{}, Conversations: convos}

	doc := ctxdoc.Document{"trigger": map[string]any{"user_id": "web-user-1"}, "business_id": "tenant-1"}
	node := workflow.Node{Config: map[string]any{"template": "Hello there"}}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "sent_web", res.Output["action_result"])
	require.Len(t, convos.stored, 1)
}

func TestActionSendMessageCatchesSenderError(t *testing.T) {
	sender := &failingSender{err: errors.New("whatsapp: 500 upstream error")}
	exec := nodeexec.ActionExecutor{Sender: sender, Conversations: &fakeConversations{}}

	doc := ctxdoc.Document{"trigger": map[string]any{"from_number": "+15551234"}}
	node := workflow.Node{Config: map[string]any{"template": "Hi there"}}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "failed", res.Output["action_result"])
	require.Equal(t, "whatsapp: 500 upstream error", res.Output["error"])
}

func TestActionSendMessageFailsWithoutTarget(t *testing.T) {
	exec := nodeexec.ActionExecutor{Sender: &capturingSender{}, Conversations: &fakeConversations{}}
	res, err := exec.Execute(context.Background(), workflow.Node{Config: map[string]any{}}, ctxdoc.Document{})
	require.NoError(t, err)
	require.Equal(t, "failed", res.Output["action_result"])
}

var _ store.Tickets = (*fakeTickets)(nil)

type fakeTickets struct{}

func (fakeTickets) Create(context.Context, *store.Ticket) (string, error) { return "ticket-1", nil }
func (fakeTickets) AssignAgent(context.Context, string, string, string) error { return nil }

func TestActionCreateTicket(t *testing.T) {
	exec := nodeexec.ActionExecutor{Tickets: fakeTickets{}}
	node := workflow.Node{Config: map[string]any{"action_type": "create_ticket", "subject": "Help"}}

	res, err := exec.Execute(context.Background(), node, ctxdoc.Document{"trigger": map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "ticket-1", res.Output["ticket_id"])
	require.Equal(t, "ticket_created", res.Output["action_result"])
}

func TestActionAssignAgentSkipsWithoutIDs(t *testing.T) {
	exec := nodeexec.ActionExecutor{Tickets: fakeTickets{}}
	node := workflow.Node{Config: map[string]any{"action_type": "assign_agent"}}

	res, err := exec.Execute(context.Background(), node, ctxdoc.Document{})
	require.NoError(t, err)
	require.Equal(t, "skipped", res.Output["action_result"])
}

var _ channel.Sender = (*capturingSender)(nil)
var _ channel.Sender = (*failingSender)(nil)
var _ store.Conversations = (*fakeConversations)(nil)

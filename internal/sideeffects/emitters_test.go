package sideeffects_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/sideeffects"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/trigger"
)

type fakeLeads struct {
	leads      map[string]*store.Lead
	activities []*store.LeadActivity
}

func newFakeLeads(seed *store.Lead) *fakeLeads {
	return &fakeLeads{leads: map[string]*store.Lead{seed.ID: seed}}
}

func (f *fakeLeads) Save(ctx context.Context, l *store.Lead) (string, error) {
	l.ID = "lead-new"
	f.leads[l.ID] = l
	return l.ID, nil
}

func (f *fakeLeads) Get(ctx context.Context, tenantID, id string) (*store.Lead, error) {
	l, ok := f.leads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeads) Update(ctx context.Context, tenantID, id string, updates map[string]any) (*store.Lead, error) {
	l := f.leads[id]
	if status, ok := updates["status"].(string); ok {
		l.Status = status
	}
	if contact, ok := updates["contact"].(string); ok {
		l.Contact = contact
	}
	return l, nil
}

func (f *fakeLeads) LogActivity(ctx context.Context, a *store.LeadActivity) error {
	f.activities = append(f.activities, a)
	return nil
}

type fakeTickets struct{ created []*store.Ticket }

func (f *fakeTickets) Create(ctx context.Context, t *store.Ticket) (string, error) {
	f.created = append(f.created, t)
	return "ticket-1", nil
}
func (f *fakeTickets) AssignAgent(ctx context.Context, tenantID, ticketID, agentID string) error {
	return nil
}

type fakeConversations struct {
	stored []string
}

func (f *fakeConversations) EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error) {
	return "conv-1", nil
}
func (f *fakeConversations) StoreMessage(ctx context.Context, conversationID, role, body string) error {
	f.stored = append(f.stored, body)
	return nil
}

var _ store.Leads = (*fakeLeads)(nil)
var _ store.Tickets = (*fakeTickets)(nil)
var _ store.Conversations = (*fakeConversations)(nil)

func TestUpdateLeadLogsOnlyChangedTrackedFields(t *testing.T) {
	leads := newFakeLeads(&store.Lead{ID: "lead-1", TenantID: "t1", Status: "new", Contact: "+1555"})
	e := &sideeffects.Emitter{Leads: leads}

	_, err := e.UpdateLead(context.Background(), "t1", "lead-1", map[string]any{"status": "won", "contact": "+1555"}, "agent-1")
	require.NoError(t, err)
	require.Len(t, leads.activities, 1)
	require.Equal(t, "status_change", leads.activities[0].Type)
	require.Equal(t, "new", leads.activities[0].Content["old"])
	require.Equal(t, "won", leads.activities[0].Content["new"])
}

func TestUpdateLeadEmitsLeadStatusUpdateEvent(t *testing.T) {
	leads := newFakeLeads(&store.Lead{ID: "lead-1", TenantID: "t1", Status: "new", Contact: "+1555"})
	var seen trigger.Event
	e := &sideeffects.Emitter{
		Leads: leads,
		Resolve: func(ctx context.Context, tenantID string, event trigger.Event) error {
			seen = event
			return nil
		},
	}

	_, err := e.UpdateLead(context.Background(), "t1", "lead-1", map[string]any{"status": "won"}, "system")
	require.NoError(t, err)
	require.Equal(t, "lead_status_update", seen.Kind)
	require.Equal(t, "won", seen.NewStatus)
	require.Equal(t, "+1555", seen.FromUser)
}

func TestUpdateLeadSkipsActivityWhenValueUnchanged(t *testing.T) {
	leads := newFakeLeads(&store.Lead{ID: "lead-1", TenantID: "t1", Status: "new"})
	e := &sideeffects.Emitter{Leads: leads}

	_, err := e.UpdateLead(context.Background(), "t1", "lead-1", map[string]any{"status": "new"}, "system")
	require.NoError(t, err)
	require.Empty(t, leads.activities)
}

func TestSendMessageStoresTranscriptAndDeliversOverSender(t *testing.T) {
	type sent struct{ tenant, target, body string }
	var delivered []sent
	sender := channel.SenderFunc(func(ctx context.Context, tenantID, target, body string) error {
		delivered = append(delivered, sent{tenantID, target, body})
		return nil
	})
	convs := &fakeConversations{}
	bus := hooks.NewBus()
	e := &sideeffects.Emitter{Conversations: convs, Sender: sender, Bus: bus}

	err := e.SendMessage(context.Background(), "t1", "+1555", "whatsapp", "+1555", "hello")
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, convs.stored)
	require.Len(t, delivered, 1)
	require.Equal(t, "+1555", delivered[0].target)
}

func TestCreateTicketReturnsID(t *testing.T) {
	tickets := &fakeTickets{}
	e := &sideeffects.Emitter{Tickets: tickets}
	id, err := e.CreateTicket(context.Background(), &store.Ticket{TenantID: "t1", Subject: "help"})
	require.NoError(t, err)
	require.Equal(t, "ticket-1", id)
	require.Len(t, tickets.created, 1)
}

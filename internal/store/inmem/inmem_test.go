package inmem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/store/inmem"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

func TestWorkflowsCreateGetListActive(t *testing.T) {
	s := inmem.New()
	wfs := s.Workflows()
	ctx := context.Background()

	err := wfs.Create(ctx, &workflow.Workflow{TenantID: "t1", Active: true, TriggerKind: workflow.TriggerKeyword})
	require.NoError(t, err)

	active, err := wfs.ListActive(ctx, "t1", workflow.TriggerKeyword)
	require.NoError(t, err)
	require.Len(t, active, 1)

	none, err := wfs.ListActive(ctx, "t1", workflow.TriggerIntent)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestExecutionsListSuspendedByTenant(t *testing.T) {
	s := inmem.New()
	execs := s.Executions()
	ctx := context.Background()

	require.NoError(t, execs.Create(ctx, &workflow.Execution{ID: "e1", TenantID: "t1", Status: workflow.StatusSuspended}))
	require.NoError(t, execs.Create(ctx, &workflow.Execution{ID: "e2", TenantID: "t1", Status: workflow.StatusCompleted}))

	suspended, err := execs.ListSuspendedByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	require.Equal(t, "e1", suspended[0].ID)
}

func TestLeadsSaveUpdateGet(t *testing.T) {
	s := inmem.New()
	leads := s.Leads()
	ctx := context.Background()

	id, err := leads.Save(ctx, &store.Lead{TenantID: "t1", Name: "Jane", Status: "new"})
	require.NoError(t, err)

	updated, err := leads.Update(ctx, "t1", id, map[string]any{"status": "won"})
	require.NoError(t, err)
	require.Equal(t, "won", updated.Status)

	fetched, err := leads.Get(ctx, "t1", id)
	require.NoError(t, err)
	require.Equal(t, "won", fetched.Status)
}

func TestAppointmentsBookRejectsOverlap(t *testing.T) {
	s := inmem.New()
	appts := s.Appointments()
	ctx := context.Background()

	start := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	_, err := appts.Book(ctx, &store.Appointment{TenantID: "t1", StartAt: start, EndAt: end, Status: "scheduled"})
	require.NoError(t, err)

	_, err = appts.Book(ctx, &store.Appointment{TenantID: "t1", StartAt: start.Add(10 * time.Minute), EndAt: end.Add(10 * time.Minute), Status: "scheduled"})
	require.ErrorIs(t, err, store.ErrSlotUnavailable)
}

func TestConversationsEnsureIsIdempotentPerParticipant(t *testing.T) {
	s := inmem.New()
	convs := s.Conversations()
	ctx := context.Background()

	id1, err := convs.EnsureConversation(ctx, "t1", "+1555", "whatsapp")
	require.NoError(t, err)
	id2, err := convs.EnsureConversation(ctx, "t1", "+1555", "whatsapp")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	require.NoError(t, convs.StoreMessage(ctx, id1, "user", "hi"))
	require.Equal(t, []string{"hi"}, s.Messages(id1))
}

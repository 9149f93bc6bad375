package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
)

// Leads returns the store.Leads view of this Store.
func (s *Store) Leads() store.Leads { return leadsView{s} }

type leadsView struct{ s *Store }

func (v leadsView) Save(ctx context.Context, l *store.Lead) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	v.s.leads[l.ID] = &cp
	return l.ID, nil
}

func (v leadsView) Get(ctx context.Context, tenantID, id string) (*store.Lead, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.leads[id]
	if !ok || l.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (v leadsView) Update(ctx context.Context, tenantID, id string, updates map[string]any) (*store.Lead, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.leads[id]
	if !ok || l.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	applyLeadUpdates(l, updates)
	cp := *l
	return &cp, nil
}

func applyLeadUpdates(l *store.Lead, updates map[string]any) {
	if v, ok := updates["status"].(string); ok {
		l.Status = v
	}
	if v, ok := updates["value"].(float64); ok {
		l.Value = &v
	}
	if v, ok := updates["tags"].([]string); ok {
		l.Tags = v
	}
	if v, ok := updates["email"].(string); ok {
		l.Email = v
	}
	if v, ok := updates["phone"].(string); ok {
		l.Phone = v
	}
	if v, ok := updates["notes"].(string); ok {
		l.Notes = v
	}
}

func (v leadsView) LogActivity(ctx context.Context, a *store.LeadActivity) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	v.s.activities = append(v.s.activities, &cp)
	return nil
}

var _ store.Leads = leadsView{}

// Activities returns the logged activities for a lead, for test assertions.
func (s *Store) Activities(leadID string) []store.LeadActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.LeadActivity
	for _, a := range s.activities {
		if a.LeadID == leadID {
			out = append(out, *a)
		}
	}
	return out
}

// Tickets returns the store.Tickets view of this Store.
func (s *Store) Tickets() store.Tickets { return ticketsView{s} }

type ticketsView struct{ s *Store }

func (v ticketsView) Create(ctx context.Context, t *store.Ticket) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	v.s.tickets[t.ID] = &cp
	return t.ID, nil
}

func (v ticketsView) AssignAgent(ctx context.Context, tenantID, ticketID, agentID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tickets[ticketID]
	if !ok || t.TenantID != tenantID {
		return store.ErrNotFound
	}
	t.Status = "assigned"
	t.Description += " [assigned to " + agentID + "]"
	return nil
}

var _ store.Tickets = ticketsView{}

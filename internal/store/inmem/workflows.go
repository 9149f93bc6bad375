package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Workflows returns the store.Workflows view of this Store.
func (s *Store) Workflows() store.Workflows { return workflowsView{s} }

type workflowsView struct{ s *Store }

func (v workflowsView) Create(ctx context.Context, w *workflow.Workflow) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	cp := *w
	v.s.workflows[w.ID] = &cp
	return nil
}

func (v workflowsView) Get(ctx context.Context, tenantID, id string) (*workflow.Workflow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	w, ok := v.s.workflows[id]
	if !ok || w.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (v workflowsView) ListActive(ctx context.Context, tenantID string, kinds ...workflow.TriggerKind) ([]workflow.Workflow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	allow := make(map[workflow.TriggerKind]bool, len(kinds))
	for _, k := range kinds {
		allow[k] = true
	}
	var out []workflow.Workflow
	for _, w := range v.s.workflows {
		if w.TenantID != tenantID || !w.Active {
			continue
		}
		if len(allow) > 0 && !allow[w.TriggerKind] {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v workflowsView) List(ctx context.Context, tenantID string) ([]workflow.Workflow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []workflow.Workflow
	for _, w := range v.s.workflows {
		if w.TenantID == tenantID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v workflowsView) Delete(ctx context.Context, tenantID, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	w, ok := v.s.workflows[id]
	if !ok || w.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(v.s.workflows, id)
	return nil
}

var _ store.Workflows = workflowsView{}

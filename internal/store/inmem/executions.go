package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Executions returns the store.Executions view of this Store.
func (s *Store) Executions() store.Executions { return executionsView{s} }

type executionsView struct{ s *Store }

func (v executionsView) Create(ctx context.Context, e *workflow.Execution) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	v.s.executions[e.ID] = &cp
	return nil
}

func (v executionsView) Get(ctx context.Context, id string) (*workflow.Execution, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.executions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (v executionsView) Update(ctx context.Context, e *workflow.Execution) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.executions[e.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *e
	v.s.executions[e.ID] = &cp
	return nil
}

func (v executionsView) ListSuspendedByTenant(ctx context.Context, tenantID string) ([]workflow.Execution, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []workflow.Execution
	for _, e := range v.s.executions {
		if e.TenantID == tenantID && e.Status == workflow.StatusSuspended {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v executionsView) List(ctx context.Context, tenantID, workflowID string) ([]workflow.Execution, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []workflow.Execution
	for _, e := range v.s.executions {
		if e.TenantID == tenantID && (workflowID == "" || e.WorkflowID == workflowID) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ store.Executions = executionsView{}

// Steps returns the store.Steps view of this Store.
func (s *Store) Steps() store.Steps { return stepsView{s} }

type stepsView struct{ s *Store }

func (v stepsView) Append(ctx context.Context, st *workflow.Step) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	cp := *st
	v.s.steps[st.ExecutionID] = append(v.s.steps[st.ExecutionID], &cp)
	return nil
}

func (v stepsView) Update(ctx context.Context, st *workflow.Step) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.steps[st.ExecutionID] {
		if existing.ID == st.ID {
			*existing = *st
			return nil
		}
	}
	return store.ErrNotFound
}

func (v stepsView) ListByExecution(ctx context.Context, executionID string) ([]workflow.Step, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	steps := v.s.steps[executionID]
	out := make([]workflow.Step, len(steps))
	for i, st := range steps {
		out[i] = *st
	}
	return out, nil
}

var _ store.Steps = stepsView{}

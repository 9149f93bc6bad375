package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// Executions implements store.Executions on gorm.io/gorm.
type Executions struct {
	db *gorm.DB
}

// NewExecutions wraps an open *gorm.DB.
func NewExecutions(db *gorm.DB) *Executions {
	return &Executions{db: db}
}

func (r *Executions) Create(ctx context.Context, e *workflow.Execution) error {
	m, err := toExecutionModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("postgres: create execution: %w", err)
	}
	return nil
}

func (r *Executions) Get(ctx context.Context, id string) (*workflow.Execution, error) {
	var m executionModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromExecutionModel(&m)
}

// Update writes the full record back, enforcing optimistic concurrency
// on Version per spec §5: the write only applies if the stored row is
// still at e.Version-1, matching what the caller read.
func (r *Executions) Update(ctx context.Context, e *workflow.Execution) error {
	m, err := toExecutionModel(e)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&executionModel{}).
		Where("id = ? AND version = ?", e.ID, e.Version-1).
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("postgres: update execution: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("postgres: update execution %s: %w", e.ID, store.ErrNotFound)
	}
	return nil
}

func (r *Executions) ListSuspendedByTenant(ctx context.Context, tenantID string) ([]workflow.Execution, error) {
	var models []executionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(workflow.StatusSuspended)).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromExecutionModels(models)
}

func (r *Executions) List(ctx context.Context, tenantID, workflowID string) ([]workflow.Execution, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if workflowID != "" {
		q = q.Where("workflow_id = ?", workflowID)
	}
	var models []executionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromExecutionModels(models)
}

func toExecutionModel(e *workflow.Execution) (*executionModel, error) {
	trig, err := json.Marshal(e.TriggerEvent)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal trigger event: %w", err)
	}
	ctxJSON, err := json.Marshal(e.Context)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal execution context: %w", err)
	}
	var resumeNodeID *string
	if e.ResumePayload != nil {
		resumeNodeID = &e.ResumePayload.NodeID
	}
	return &executionModel{
		ID:           e.ID,
		WorkflowID:   e.WorkflowID,
		TenantID:     e.TenantID,
		Status:       string(e.Status),
		TriggerEvent: string(trig),
		Context:      string(ctxJSON),
		ResumeNodeID: resumeNodeID,
		Version:      e.Version,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
	}, nil
}

func fromExecutionModel(m *executionModel) (*workflow.Execution, error) {
	var trig, ctxMap map[string]any
	if m.TriggerEvent != "" {
		if err := json.Unmarshal([]byte(m.TriggerEvent), &trig); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal trigger event: %w", err)
		}
	}
	if m.Context != "" {
		if err := json.Unmarshal([]byte(m.Context), &ctxMap); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal execution context: %w", err)
		}
	}
	var resume *workflow.ResumePayload
	if m.ResumeNodeID != nil {
		resume = &workflow.ResumePayload{NodeID: *m.ResumeNodeID}
	}
	return &workflow.Execution{
		ID:            m.ID,
		WorkflowID:    m.WorkflowID,
		TenantID:      m.TenantID,
		Status:        workflow.Status(m.Status),
		TriggerEvent:  trig,
		Context:       ctxMap,
		ResumePayload: resume,
		Version:       m.Version,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
	}, nil
}

func fromExecutionModels(models []executionModel) ([]workflow.Execution, error) {
	out := make([]workflow.Execution, 0, len(models))
	for i := range models {
		e, err := fromExecutionModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

var _ store.Executions = (*Executions)(nil)

// Steps implements store.Steps on gorm.io/gorm.
type Steps struct {
	db *gorm.DB
}

// NewSteps wraps an open *gorm.DB.
func NewSteps(db *gorm.DB) *Steps {
	return &Steps{db: db}
}

func (r *Steps) Append(ctx context.Context, s *workflow.Step) error {
	m, err := toStepModel(s)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Steps) Update(ctx context.Context, s *workflow.Step) error {
	m, err := toStepModel(s)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&stepModel{}).Where("id = ?", s.ID).Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Steps) ListByExecution(ctx context.Context, executionID string) ([]workflow.Step, error) {
	var models []stepModel
	if err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("started_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]workflow.Step, 0, len(models))
	for _, m := range models {
		s, err := fromStepModel(&m)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func toStepModel(s *workflow.Step) (*stepModel, error) {
	in, err := json.Marshal(s.Input)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal step input: %w", err)
	}
	out, err := json.Marshal(s.Output)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal step output: %w", err)
	}
	return &stepModel{
		ID:          s.ID,
		ExecutionID: s.ExecutionID,
		NodeID:      s.NodeID,
		Status:      string(s.Status),
		Input:       string(in),
		Output:      string(out),
		Error:       s.Error,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}, nil
}

func fromStepModel(m *stepModel) (*workflow.Step, error) {
	var in, out map[string]any
	if m.Input != "" {
		if err := json.Unmarshal([]byte(m.Input), &in); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal step input: %w", err)
		}
	}
	if m.Output != "" {
		if err := json.Unmarshal([]byte(m.Output), &out); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal step output: %w", err)
		}
	}
	return &workflow.Step{
		ID:          m.ID,
		ExecutionID: m.ExecutionID,
		NodeID:      m.NodeID,
		Status:      workflow.StepStatus(m.Status),
		Input:       in,
		Output:      out,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}, nil
}

var _ store.Steps = (*Steps)(nil)

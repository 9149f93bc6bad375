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

// Workflows implements store.Workflows on gorm.io/gorm.
type Workflows struct {
	db *gorm.DB
}

// NewWorkflows wraps an open *gorm.DB.
func NewWorkflows(db *gorm.DB) *Workflows {
	return &Workflows{db: db}
}

func (r *Workflows) Create(ctx context.Context, w *workflow.Workflow) error {
	m, err := toWorkflowModel(w)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("postgres: create workflow: %w", err)
		}
		return nil
	})
}

func (r *Workflows) Get(ctx context.Context, tenantID, id string) (*workflow.Workflow, error) {
	var m workflowModel
	err := r.db.WithContext(ctx).
		Preload("Nodes").Preload("Edges").
		First(&m, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromWorkflowModel(&m)
}

func (r *Workflows) ListActive(ctx context.Context, tenantID string, kinds ...workflow.TriggerKind) ([]workflow.Workflow, error) {
	q := r.db.WithContext(ctx).Preload("Nodes").Preload("Edges").
		Where("tenant_id = ? AND active = ?", tenantID, true)
	if len(kinds) > 0 {
		strs := make([]string, len(kinds))
		for i, k := range kinds {
			strs[i] = string(k)
		}
		q = q.Where("trigger_kind IN ?", strs)
	}
	var models []workflowModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromWorkflowModels(models)
}

func (r *Workflows) List(ctx context.Context, tenantID string) ([]workflow.Workflow, error) {
	var models []workflowModel
	if err := r.db.WithContext(ctx).Preload("Nodes").Preload("Edges").
		Where("tenant_id = ?", tenantID).Find(&models).Error; err != nil {
		return nil, err
	}
	return fromWorkflowModels(models)
}

func (r *Workflows) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&nodeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&edgeModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&workflowModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func toWorkflowModel(w *workflow.Workflow) (*workflowModel, error) {
	cfg, err := json.Marshal(w.TriggerConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal trigger config: %w", err)
	}
	m := &workflowModel{
		ID:            w.ID,
		TenantID:      w.TenantID,
		Name:          w.Name,
		Active:        w.Active,
		TriggerKind:   string(w.TriggerKind),
		TriggerConfig: string(cfg),
	}
	for _, n := range w.Nodes {
		nc, err := json.Marshal(n.Config)
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal node config: %w", err)
		}
		m.Nodes = append(m.Nodes, nodeModel{
			ID:         n.ID,
			WorkflowID: w.ID,
			Kind:       string(n.Kind),
			Label:      n.Label,
			Config:     string(nc),
		})
	}
	for _, e := range w.Edges {
		m.Edges = append(m.Edges, edgeModel{
			WorkflowID: w.ID,
			Source:     e.Source,
			Target:     e.Target,
			Guard:      e.Guard,
		})
	}
	return m, nil
}

func fromWorkflowModel(m *workflowModel) (*workflow.Workflow, error) {
	var cfg map[string]any
	if m.TriggerConfig != "" {
		if err := json.Unmarshal([]byte(m.TriggerConfig), &cfg); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal trigger config: %w", err)
		}
	}
	w := &workflow.Workflow{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		Active:        m.Active,
		TriggerKind:   workflow.TriggerKind(m.TriggerKind),
		TriggerConfig: cfg,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	for _, n := range m.Nodes {
		var nc map[string]any
		if n.Config != "" {
			if err := json.Unmarshal([]byte(n.Config), &nc); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal node config: %w", err)
			}
		}
		w.Nodes = append(w.Nodes, workflow.Node{
			ID:         n.ID,
			WorkflowID: n.WorkflowID,
			Kind:       workflow.NodeKind(n.Kind),
			Label:      n.Label,
			Config:     nc,
		})
	}
	for _, e := range m.Edges {
		w.Edges = append(w.Edges, workflow.Edge{
			WorkflowID: e.WorkflowID,
			Source:     e.Source,
			Target:     e.Target,
			Guard:      e.Guard,
		})
	}
	return w, nil
}

func fromWorkflowModels(models []workflowModel) ([]workflow.Workflow, error) {
	out := make([]workflow.Workflow, 0, len(models))
	for i := range models {
		w, err := fromWorkflowModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

var _ store.Workflows = (*Workflows)(nil)

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/convoflow/workflow-engine/internal/store"
)

// Leads implements store.Leads on gorm.io/gorm.
type Leads struct {
	db *gorm.DB
}

// NewLeads wraps an open *gorm.DB.
func NewLeads(db *gorm.DB) *Leads {
	return &Leads{db: db}
}

func (r *Leads) Save(ctx context.Context, l *store.Lead) (string, error) {
	m, err := toLeadModel(l)
	if err != nil {
		return "", err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", fmt.Errorf("postgres: save lead: %w", err)
	}
	return m.ID, nil
}

func (r *Leads) Get(ctx context.Context, tenantID, id string) (*store.Lead, error) {
	var m leadModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromLeadModel(&m)
}

// Update applies a sparse field update by column name, matching the
// teacher's pattern of translating a generic map into named gorm
// Updates calls rather than a dynamic ORM-level PATCH.
func (r *Leads) Update(ctx context.Context, tenantID, id string, updates map[string]any) (*store.Lead, error) {
	cols := map[string]any{}
	for k, v := range updates {
		switch k {
		case "status":
			cols["status"] = v
		case "value":
			cols["value"] = v
		case "tags":
			tags, _ := v.([]string)
			b, err := json.Marshal(tags)
			if err != nil {
				return nil, fmt.Errorf("postgres: marshal lead tags: %w", err)
			}
			cols["tags"] = string(b)
		case "email":
			cols["email"] = v
		case "phone":
			cols["phone"] = v
		case "notes":
			cols["notes"] = v
		}
	}
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&leadModel{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return r.Get(ctx, tenantID, id)
}

func (r *Leads) LogActivity(ctx context.Context, a *store.LeadActivity) error {
	content, err := json.Marshal(a.Content)
	if err != nil {
		return fmt.Errorf("postgres: marshal lead activity content: %w", err)
	}
	return r.db.WithContext(ctx).Create(&leadActivityModel{
		ID:        a.ID,
		LeadID:    a.LeadID,
		TenantID:  a.TenantID,
		Type:      a.Type,
		Content:   string(content),
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
	}).Error
}

func toLeadModel(l *store.Lead) (*leadModel, error) {
	tags, err := json.Marshal(l.Tags)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal lead tags: %w", err)
	}
	cf, err := json.Marshal(l.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal lead custom fields: %w", err)
	}
	return &leadModel{
		ID:              l.ID,
		TenantID:        l.TenantID,
		Name:            l.Name,
		Contact:         l.Contact,
		Email:           l.Email,
		Phone:           l.Phone,
		Source:          l.Source,
		Notes:           l.Notes,
		Status:          l.Status,
		Tags:            string(tags),
		Value:           l.Value,
		CustomFields:    string(cf),
		ConversationID:  l.ConversationID,
		LastInteraction: l.LastInteraction,
	}, nil
}

func fromLeadModel(m *leadModel) (*store.Lead, error) {
	var tags []string
	if m.Tags != "" {
		if err := json.Unmarshal([]byte(m.Tags), &tags); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal lead tags: %w", err)
		}
	}
	var cf map[string]any
	if m.CustomFields != "" {
		if err := json.Unmarshal([]byte(m.CustomFields), &cf); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal lead custom fields: %w", err)
		}
	}
	return &store.Lead{
		ID:              m.ID,
		TenantID:        m.TenantID,
		Name:            m.Name,
		Contact:         m.Contact,
		Email:           m.Email,
		Phone:           m.Phone,
		Source:          m.Source,
		Notes:           m.Notes,
		Status:          m.Status,
		Tags:            tags,
		Value:           m.Value,
		CustomFields:    cf,
		ConversationID:  m.ConversationID,
		LastInteraction: m.LastInteraction,
	}, nil
}

var _ store.Leads = (*Leads)(nil)

// Tickets implements store.Tickets on gorm.io/gorm.
type Tickets struct {
	db *gorm.DB
}

// NewTickets wraps an open *gorm.DB.
func NewTickets(db *gorm.DB) *Tickets {
	return &Tickets{db: db}
}

func (r *Tickets) Create(ctx context.Context, t *store.Ticket) (string, error) {
	m := &ticketModel{
		ID:          t.ID,
		TenantID:    t.TenantID,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", fmt.Errorf("postgres: create ticket: %w", err)
	}
	return m.ID, nil
}

func (r *Tickets) AssignAgent(ctx context.Context, tenantID, ticketID, agentID string) error {
	res := r.db.WithContext(ctx).Model(&ticketModel{}).
		Where("id = ? AND tenant_id = ?", ticketID, tenantID).
		Updates(map[string]any{"agent_id": agentID, "status": "assigned"})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Tickets = (*Tickets)(nil)

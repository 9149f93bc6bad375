package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/convoflow/workflow-engine/internal/store"
)

type conversationModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	TenantID    string `gorm:"size:64;index:idx_conv_tenant_participant"`
	Participant string `gorm:"size:255;index:idx_conv_tenant_participant"`
	Channel     string `gorm:"size:32"`
	CreatedAt   time.Time
}

func (conversationModel) TableName() string { return "conversations" }

type messageModel struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"size:64;index"`
	Role           string `gorm:"size:16"`
	Body           string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string { return "conversation_messages" }

// Conversations implements store.Conversations on gorm.io/gorm.
// internal/store/mongostore is an alternative implementation that
// cmd/engineserver uses instead of this one when a Mongo URI is
// configured; nothing is mirrored between the two.
type Conversations struct {
	db *gorm.DB
}

// NewConversations wraps an open *gorm.DB.
func NewConversations(db *gorm.DB) *Conversations {
	return &Conversations{db: db}
}

func (r *Conversations) EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error) {
	var m conversationModel
	err := r.db.WithContext(ctx).
		First(&m, "tenant_id = ? AND participant = ?", tenantID, participant).Error
	if err == nil {
		return m.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	m = conversationModel{
		ID:          fmt.Sprintf("%s:%s", tenantID, participant),
		TenantID:    tenantID,
		Participant: participant,
		Channel:     channel,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", fmt.Errorf("postgres: create conversation: %w", err)
	}
	return m.ID, nil
}

func (r *Conversations) StoreMessage(ctx context.Context, conversationID, role, body string) error {
	return r.db.WithContext(ctx).Create(&messageModel{
		ConversationID: conversationID,
		Role:           role,
		Body:           body,
	}).Error
}

var _ store.Conversations = (*Conversations)(nil)

// BusinessSettings implements store.BusinessSettings on gorm.io/gorm.
type BusinessSettings struct {
	db *gorm.DB
}

// NewBusinessSettings wraps an open *gorm.DB.
func NewBusinessSettings(db *gorm.DB) *BusinessSettings {
	return &BusinessSettings{db: db}
}

func (r *BusinessSettings) Get(ctx context.Context, tenantID string) (map[string]any, error) {
	var m businessSettingsModel
	err := r.db.WithContext(ctx).First(&m, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if m.Settings != "" {
		if err := json.Unmarshal([]byte(m.Settings), &out); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal business settings: %w", err)
		}
	}
	return out, nil
}

var _ store.BusinessSettings = (*BusinessSettings)(nil)

// KnowledgeDocs implements store.KnowledgeDocs on gorm.io/gorm.
type KnowledgeDocs struct {
	db *gorm.DB
}

// NewKnowledgeDocs wraps an open *gorm.DB.
func NewKnowledgeDocs(db *gorm.DB) *KnowledgeDocs {
	return &KnowledgeDocs{db: db}
}

func (r *KnowledgeDocs) List(ctx context.Context, tenantID string) ([]store.KnowledgeDoc, error) {
	var models []knowledgeDocModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.KnowledgeDoc, 0, len(models))
	for _, m := range models {
		out = append(out, store.KnowledgeDoc{Title: m.Title, Content: m.Content})
	}
	return out, nil
}

var _ store.KnowledgeDocs = (*KnowledgeDocs)(nil)

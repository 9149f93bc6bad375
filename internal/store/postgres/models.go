// Package postgres implements every internal/store interface on
// gorm.io/gorm against Postgres, grounded on
// None9527-NGOClaw/gateway/internal/infrastructure/persistence: one
// gorm.Model-shaped struct per table with its own TableName, a
// NewDBConnection that opens the dialector and AutoMigrates, and one
// repository type per domain aggregate wrapping *gorm.DB. The teacher
// also supports sqlite for local dev; this module only ever targets
// Postgres in production so that dialector branch is dropped, but the
// connection-setup shape (custom NowFunc, logger.Default) is kept.
package postgres

import (
	"time"

	"gorm.io/gorm"
)

type tenantModel struct {
	ID                 string `gorm:"primaryKey;size:64"`
	Name               string `gorm:"size:255"`
	SubscriptionStatus string `gorm:"size:32;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (tenantModel) TableName() string { return "tenants" }

type workflowModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	TenantID      string `gorm:"size:64;index:idx_workflow_tenant"`
	Name          string `gorm:"size:255"`
	Active        bool   `gorm:"index"`
	TriggerKind   string `gorm:"size:32;index"`
	TriggerConfig string `gorm:"type:text"` // JSON encoded map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Nodes         []nodeModel `gorm:"foreignKey:WorkflowID"`
	Edges         []edgeModel `gorm:"foreignKey:WorkflowID"`
}

func (workflowModel) TableName() string { return "workflows" }

type nodeModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	WorkflowID string `gorm:"size:64;index"`
	Kind       string `gorm:"size:32"`
	Label      string `gorm:"size:255"`
	Config     string `gorm:"type:text"` // JSON encoded map[string]any
}

func (nodeModel) TableName() string { return "workflow_nodes" }

type edgeModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	WorkflowID string `gorm:"size:64;index"`
	Source     string `gorm:"size:64"`
	Target     string `gorm:"size:64"`
	Guard      *string
}

func (edgeModel) TableName() string { return "workflow_edges" }

type executionModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	WorkflowID    string `gorm:"size:64;index"`
	TenantID      string `gorm:"size:64;index:idx_execution_tenant"`
	Status        string `gorm:"size:32;index"`
	TriggerEvent  string `gorm:"type:text"` // JSON encoded map[string]any
	Context       string `gorm:"type:text"` // JSON encoded map[string]any
	ResumeNodeID  *string `gorm:"size:64"`
	Version       int
	StartedAt     time.Time
	CompletedAt   *time.Time
}

func (executionModel) TableName() string { return "executions" }

type stepModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	ExecutionID string `gorm:"size:64;index"`
	NodeID      string `gorm:"size:64"`
	Status      string `gorm:"size:32"`
	Input       string `gorm:"type:text"` // JSON encoded map[string]any
	Output      string `gorm:"type:text"` // JSON encoded map[string]any
	Error       string `gorm:"type:text"`
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (stepModel) TableName() string { return "execution_steps" }

type businessSettingsModel struct {
	TenantID string `gorm:"primaryKey;size:64"`
	Settings string `gorm:"type:text"` // JSON encoded map[string]any
}

func (businessSettingsModel) TableName() string { return "business_settings" }

type knowledgeDocModel struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	TenantID string `gorm:"size:64;index"`
	Title    string `gorm:"size:255"`
	Content  string `gorm:"type:text"`
}

func (knowledgeDocModel) TableName() string { return "knowledge_docs" }

type leadModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	TenantID        string `gorm:"size:64;index:idx_lead_tenant"`
	Name            string `gorm:"size:255"`
	Contact         string `gorm:"size:255"`
	Email           string `gorm:"size:255"`
	Phone           string `gorm:"size:64"`
	Source          string `gorm:"size:64"`
	Notes           string `gorm:"type:text"`
	Status          string `gorm:"size:32;index"`
	Tags            string `gorm:"type:text"` // JSON encoded []string
	Value           *float64
	CustomFields    string `gorm:"type:text"` // JSON encoded map[string]any
	ConversationID  string `gorm:"size:64"`
	LastInteraction time.Time
}

func (leadModel) TableName() string { return "leads" }

type leadActivityModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	LeadID    string `gorm:"size:64;index"`
	TenantID  string `gorm:"size:64;index"`
	Type      string `gorm:"size:32"`
	Content   string `gorm:"type:text"` // JSON encoded map[string]any
	CreatedBy string `gorm:"size:64"`
	CreatedAt time.Time
}

func (leadActivityModel) TableName() string { return "lead_activities" }

type ticketModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	TenantID    string `gorm:"size:64;index"`
	Subject     string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:32"`
	Priority    string `gorm:"size:32"`
	AgentID     string `gorm:"size:64"`
}

func (ticketModel) TableName() string { return "tickets" }

type appointmentTypeModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	TenantID        string `gorm:"size:64;index"`
	Name            string `gorm:"size:255"`
	DurationMinutes int
	Active          bool
}

func (appointmentTypeModel) TableName() string { return "appointment_types" }

type availabilityRuleModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	TenantID  string `gorm:"size:64;index"`
	DayOfWeek int
	StartTime string `gorm:"size:8"`
	EndTime   string `gorm:"size:8"`
	Active    bool
}

func (availabilityRuleModel) TableName() string { return "availability_rules" }

type appointmentModel struct {
	ID                string `gorm:"primaryKey;size:64"`
	TenantID          string `gorm:"size:64;index:idx_appt_tenant_start"`
	AppointmentTypeID string `gorm:"size:64"`
	LeadID            string `gorm:"size:64"`
	ConversationID    string `gorm:"size:64"`
	StartAt           time.Time `gorm:"index:idx_appt_tenant_start"`
	EndAt             time.Time
	Status            string `gorm:"size:32;index"`
	Notes             string `gorm:"type:text"`
}

func (appointmentModel) TableName() string { return "appointments" }

// AutoMigrate creates or updates every table this store owns. Called
// once at process startup by cmd/engineserver, mirroring the teacher's
// own autoMigrate call in NewDBConnection.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&tenantModel{},
		&workflowModel{},
		&nodeModel{},
		&edgeModel{},
		&executionModel{},
		&stepModel{},
		&businessSettingsModel{},
		&knowledgeDocModel{},
		&leadModel{},
		&leadActivityModel{},
		&ticketModel{},
		&appointmentTypeModel{},
		&availabilityRuleModel{},
		&appointmentModel{},
	)
}

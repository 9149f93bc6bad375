package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/convoflow/workflow-engine/internal/store"
)

// AppointmentTypes implements store.AppointmentTypes on gorm.io/gorm.
type AppointmentTypes struct {
	db *gorm.DB
}

// NewAppointmentTypes wraps an open *gorm.DB.
func NewAppointmentTypes(db *gorm.DB) *AppointmentTypes {
	return &AppointmentTypes{db: db}
}

func (r *AppointmentTypes) Get(ctx context.Context, tenantID, id string) (*store.AppointmentType, error) {
	var m appointmentTypeModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return fromApptTypeModel(&m), nil
}

func (r *AppointmentTypes) FirstActive(ctx context.Context, tenantID string) (*store.AppointmentType, error) {
	var m appointmentTypeModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("name ASC").First(&m).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return fromApptTypeModel(&m), nil
}

func fromApptTypeModel(m *appointmentTypeModel) *store.AppointmentType {
	return &store.AppointmentType{
		ID:              m.ID,
		TenantID:        m.TenantID,
		Name:            m.Name,
		DurationMinutes: m.DurationMinutes,
		Active:          m.Active,
	}
}

var _ store.AppointmentTypes = (*AppointmentTypes)(nil)

// AvailabilityRules implements store.AvailabilityRules on gorm.io/gorm.
type AvailabilityRules struct {
	db *gorm.DB
}

// NewAvailabilityRules wraps an open *gorm.DB.
func NewAvailabilityRules(db *gorm.DB) *AvailabilityRules {
	return &AvailabilityRules{db: db}
}

func (r *AvailabilityRules) ListActiveForDay(ctx context.Context, tenantID string, dayOfWeek int) ([]store.AvailabilityRule, error) {
	var models []availabilityRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND day_of_week = ? AND active = ?", tenantID, dayOfWeek, true).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.AvailabilityRule, 0, len(models))
	for _, m := range models {
		out = append(out, store.AvailabilityRule{
			ID:        m.ID,
			TenantID:  m.TenantID,
			DayOfWeek: m.DayOfWeek,
			StartTime: m.StartTime,
			EndTime:   m.EndTime,
			Active:    m.Active,
		})
	}
	return out, nil
}

var _ store.AvailabilityRules = (*AvailabilityRules)(nil)

// Appointments implements store.Appointments on gorm.io/gorm. Book takes
// a transaction-scoped advisory lock on the tenant ID before its
// SELECT ... FOR UPDATE overlap check, so concurrent booking attempts for
// the same tenant are serialized at the database level (spec §8.8), the relational
// equivalent of the in-memory store's mutex-serialized overlap check.
type Appointments struct {
	db *gorm.DB
}

// NewAppointments wraps an open *gorm.DB.
func NewAppointments(db *gorm.DB) *Appointments {
	return &Appointments{db: db}
}

func (r *Appointments) ListForDate(ctx context.Context, tenantID string, date time.Time, statuses []string) ([]store.Appointment, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24 * time.Hour)
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_at >= ? AND start_at < ?", tenantID, start, end)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var models []appointmentModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.Appointment, 0, len(models))
	for _, m := range models {
		out = append(out, fromApptModel(&m))
	}
	return out, nil
}

func (r *Appointments) Book(ctx context.Context, a *store.Appointment) (string, error) {
	var id string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", a.TenantID).Error; err != nil {
			return fmt.Errorf("postgres: lock tenant bookings: %w", err)
		}
		var overlapping []appointmentModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
				a.TenantID, "cancelled", a.EndAt, a.StartAt).
			Find(&overlapping).Error
		if err != nil {
			return fmt.Errorf("postgres: check overlap: %w", err)
		}
		if len(overlapping) > 0 {
			return store.ErrSlotUnavailable
		}
		m := &appointmentModel{
			ID:                a.ID,
			TenantID:          a.TenantID,
			AppointmentTypeID: a.AppointmentTypeID,
			LeadID:            a.LeadID,
			ConversationID:    a.ConversationID,
			StartAt:           a.StartAt,
			EndAt:             a.EndAt,
			Status:            a.Status,
			Notes:             a.Notes,
		}
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("postgres: insert appointment: %w", err)
		}
		id = m.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func fromApptModel(m *appointmentModel) store.Appointment {
	return store.Appointment{
		ID:                m.ID,
		TenantID:          m.TenantID,
		AppointmentTypeID: m.AppointmentTypeID,
		LeadID:            m.LeadID,
		ConversationID:    m.ConversationID,
		StartAt:           m.StartAt,
		EndAt:             m.EndAt,
		Status:            m.Status,
		Notes:             m.Notes,
	}
}

var _ store.Appointments = (*Appointments)(nil)

func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return store.ErrNotFound
	}
	return err
}

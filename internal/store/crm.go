package store

import (
	"context"
	"errors"
	"time"
)

// ErrSlotUnavailable is returned by Appointments.Book when the requested
// interval overlaps an existing, non-cancelled appointment.
var ErrSlotUnavailable = errors.New("store: slot unavailable")

type (
	// Lead mirrors the CRM Lead record (spec §3, §4.10).
	Lead struct {
		ID             string
		TenantID       string
		Name           string
		Contact        string
		Email          string
		Phone          string
		Source         string
		Notes          string
		Status         string
		Tags           []string
		Value          *float64
		CustomFields   map[string]any
		ConversationID string
		LastInteraction time.Time
	}

	// LeadActivity is an append-only audit trail entry for a Lead.
	LeadActivity struct {
		ID        string
		LeadID    string
		TenantID  string
		Type      string
		Content   map[string]any
		CreatedBy string
		CreatedAt time.Time
	}

	// Ticket is a CRM support ticket.
	Ticket struct {
		ID          string
		TenantID    string
		Subject     string
		Description string
		Status      string
		Priority    string
	}

	// Leads persists Lead/LeadActivity records.
	Leads interface {
		Save(ctx context.Context, l *Lead) (string, error)
		Get(ctx context.Context, tenantID, id string) (*Lead, error)
		Update(ctx context.Context, tenantID, id string, updates map[string]any) (*Lead, error)
		LogActivity(ctx context.Context, a *LeadActivity) error
	}

	// Tickets persists Ticket records and agent assignment.
	Tickets interface {
		Create(ctx context.Context, t *Ticket) (string, error)
		AssignAgent(ctx context.Context, tenantID, ticketID, agentID string) error
	}
)

// AppointmentType describes a bookable service (spec §4.9).
type AppointmentType struct {
	ID              string
	TenantID        string
	Name            string
	DurationMinutes int
	Active          bool
}

// AvailabilityRule is a recurring weekly availability window.
type AvailabilityRule struct {
	ID        string
	TenantID  string
	DayOfWeek int // 0 = Sunday, matching time.Weekday
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"
	Active    bool
}

// Appointment is a booked slot.
type Appointment struct {
	ID                string
	TenantID          string
	AppointmentTypeID string
	LeadID            string
	ConversationID    string
	StartAt           time.Time
	EndAt             time.Time
	Status            string
	Notes             string
}

type (
	// AppointmentTypes reads bookable service definitions.
	AppointmentTypes interface {
		Get(ctx context.Context, tenantID, id string) (*AppointmentType, error)
		FirstActive(ctx context.Context, tenantID string) (*AppointmentType, error)
	}

	// AvailabilityRules reads recurring weekly windows.
	AvailabilityRules interface {
		ListActiveForDay(ctx context.Context, tenantID string, dayOfWeek int) ([]AvailabilityRule, error)
	}

	// Appointments persists bookings with an overlap-safe Book operation
	// (spec §4.9, §8.8: "two concurrent booking attempts on the same slot
	// result in at most one success").
	Appointments interface {
		ListForDate(ctx context.Context, tenantID string, date time.Time, statuses []string) ([]Appointment, error)
		// Book performs a read-check-insert under a transaction (or unique
		// interval exclusion) so that at most one of two concurrent
		// attempts at an overlapping slot succeeds. Implementations that
		// cannot express range-exclusion constraints natively (e.g. the
		// in-memory fake) must serialize Book per tenant.
		Book(ctx context.Context, a *Appointment) (string, error)
	}
)

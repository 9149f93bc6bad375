// Package scheduling implements C9: availability-rule expansion, slot
// computation, and overlap-safe booking for appointment_booking nodes.
// Grounded on original_source/services/scheduling_service.py.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
)

// Slot is a single proposable appointment start time.
type Slot struct {
	Start   time.Time
	Display string
}

// Service computes availability and books appointments.
type Service struct {
	Types        store.AppointmentTypes
	Rules        store.AvailabilityRules
	Appointments store.Appointments
}

func New(types store.AppointmentTypes, rules store.AvailabilityRules, appts store.Appointments) *Service {
	return &Service{Types: types, Rules: rules, Appointments: appts}
}

// ResolveTypeID implements spec §4.2's appointment_booking fallback: use
// the node-configured appointment type if one was given, otherwise fall
// back to the tenant's first active AppointmentType
// (original_source/services/workflow_engine.py:858-865).
func (s *Service) ResolveTypeID(ctx context.Context, tenantID, configuredID string) (string, error) {
	if configuredID != "" {
		return configuredID, nil
	}
	t, err := s.Types.FirstActive(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// AvailableSlots computes the open slots for the given tenant/date/type per
// spec §4.9:
//  1. load the appointment type for its duration
//  2. load active availability rules for date's day of week (none => empty)
//  3. load existing appointments in {scheduled, confirmed} for that date
//  4. step `duration` across each rule's window, excluding overlaps and
//     slots that don't start strictly in the future.
func (s *Service) AvailableSlots(ctx context.Context, tenantID string, date time.Time, appointmentTypeID string) ([]Slot, error) {
	apptType, err := s.Types.Get(ctx, tenantID, appointmentTypeID)
	if err != nil {
		return nil, err
	}
	duration := time.Duration(apptType.DurationMinutes) * time.Minute

	rules, err := s.Rules.ListActiveForDay(ctx, tenantID, int(date.Weekday()))
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	existing, err := s.Appointments.ListForDate(ctx, tenantID, date, []string{"scheduled", "confirmed"})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var slots []Slot
	for _, rule := range rules {
		start, err := combine(date, rule.StartTime)
		if err != nil {
			return nil, fmt.Errorf("scheduling: invalid availability rule start time: %w", err)
		}
		end, err := combine(date, rule.EndTime)
		if err != nil {
			return nil, fmt.Errorf("scheduling: invalid availability rule end time: %w", err)
		}

		for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(duration) {
			slotStart := cursor
			slotEnd := cursor.Add(duration)

			if overlaps(slotStart, slotEnd, existing) {
				continue
			}
			if !slotStart.After(now) {
				continue
			}
			slots = append(slots, Slot{
				Start:   slotStart,
				Display: slotStart.Format("Monday, Jan 2 at 3:04 PM"),
			})
		}
	}
	return slots, nil
}

func overlaps(start, end time.Time, existing []store.Appointment) bool {
	for _, a := range existing {
		if start.Before(a.EndAt) && a.StartAt.Before(end) {
			return true
		}
	}
	return false
}

func combine(date time.Time, hhmm string) (time.Time, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location()), nil
}

// BookingRequest is the input to Book.
type BookingRequest struct {
	TenantID          string
	AppointmentTypeID string
	StartAt           time.Time
	LeadID            string
	ConversationID    string
	Notes             string
}

// Book creates an Appointment and, when a LeadID is given, appends an
// appointment_booked LeadActivity (spec §4.9, §3). Overlap safety is
// delegated to store.Appointments.Book, which must perform a
// read-check-insert transaction or unique interval exclusion so that at
// most one of two concurrent attempts on the same slot succeeds
// (spec §8.8).
func (s *Service) Book(ctx context.Context, req BookingRequest, activityLogger func(ctx context.Context, a *store.LeadActivity) error) (string, time.Time, error) {
	apptType, err := s.Types.Get(ctx, req.TenantID, req.AppointmentTypeID)
	if err != nil {
		return "", time.Time{}, err
	}
	endAt := req.StartAt.Add(time.Duration(apptType.DurationMinutes) * time.Minute)

	appt := &store.Appointment{
		TenantID:          req.TenantID,
		AppointmentTypeID: req.AppointmentTypeID,
		LeadID:            req.LeadID,
		ConversationID:    req.ConversationID,
		StartAt:           req.StartAt,
		EndAt:             endAt,
		Status:            "scheduled",
		Notes:             req.Notes,
	}
	id, err := s.Appointments.Book(ctx, appt)
	if err != nil {
		return "", time.Time{}, err
	}

	if req.LeadID != "" && activityLogger != nil {
		_ = activityLogger(ctx, &store.LeadActivity{
			ID:        uuid.NewString(),
			LeadID:    req.LeadID,
			TenantID:  req.TenantID,
			Type:      "appointment_booked",
			Content:   map[string]any{"appointment_id": id, "type": apptType.Name, "start_at": req.StartAt},
			CreatedBy: "system",
			CreatedAt: time.Now(),
		})
	}

	return id, endAt, nil
}

package inmem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
)

// SeedAppointmentType registers a bookable service type for tests.
func (s *Store) SeedAppointmentType(t *store.AppointmentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	s.apptTypes[t.ID] = &cp
}

// SeedAvailabilityRule registers a recurring weekly window for tests.
func (s *Store) SeedAvailabilityRule(r store.AvailabilityRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availRules[r.TenantID] = append(s.availRules[r.TenantID], r)
}

// AppointmentTypes returns the store.AppointmentTypes view of this Store.
func (s *Store) AppointmentTypes() store.AppointmentTypes { return apptTypesView{s} }

type apptTypesView struct{ s *Store }

func (v apptTypesView) Get(ctx context.Context, tenantID, id string) (*store.AppointmentType, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.apptTypes[id]
	if !ok || t.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (v apptTypesView) FirstActive(ctx context.Context, tenantID string) (*store.AppointmentType, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, t := range v.s.apptTypes {
		if t.TenantID == tenantID && t.Active {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

var _ store.AppointmentTypes = apptTypesView{}

// AvailabilityRules returns the store.AvailabilityRules view of this Store.
func (s *Store) AvailabilityRules() store.AvailabilityRules { return availRulesView{s} }

type availRulesView struct{ s *Store }

func (v availRulesView) ListActiveForDay(ctx context.Context, tenantID string, dayOfWeek int) ([]store.AvailabilityRule, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []store.AvailabilityRule
	for _, r := range v.s.availRules[tenantID] {
		if r.Active && r.DayOfWeek == dayOfWeek {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ store.AvailabilityRules = availRulesView{}

// Appointments returns the store.Appointments view of this Store.
func (s *Store) Appointments() store.Appointments { return appointmentsView{s} }

type appointmentsView struct{ s *Store }

func (v appointmentsView) ListForDate(ctx context.Context, tenantID string, date time.Time, statuses []string) ([]store.Appointment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	allow := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		allow[st] = true
	}
	var out []store.Appointment
	for _, a := range v.s.appts {
		if a.TenantID != tenantID || !sameDate(a.StartAt, date) {
			continue
		}
		if len(allow) > 0 && !allow[a.Status] {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// Book serializes per-tenant under the Store mutex, satisfying the
// at-most-one-success overlap contract the way an in-memory fake can:
// by holding the lock across the overlap check and the insert.
func (v appointmentsView) Book(ctx context.Context, a *store.Appointment) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.appts {
		if existing.TenantID != a.TenantID || existing.Status == "cancelled" {
			continue
		}
		if a.StartAt.Before(existing.EndAt) && existing.StartAt.Before(a.EndAt) {
			return "", store.ErrSlotUnavailable
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	v.s.appts[a.ID] = &cp
	return a.ID, nil
}

var _ store.Appointments = appointmentsView{}

func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

package scheduling_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/scheduling"
	"github.com/convoflow/workflow-engine/internal/store"
)

type fakeTypes struct{ t store.AppointmentType }

func (f *fakeTypes) Get(context.Context, string, string) (*store.AppointmentType, error) {
	return &f.t, nil
}
func (f *fakeTypes) FirstActive(context.Context, string) (*store.AppointmentType, error) {
	return &f.t, nil
}

type fakeRules struct{ rules []store.AvailabilityRule }

func (f *fakeRules) ListActiveForDay(_ context.Context, _ string, dow int) ([]store.AvailabilityRule, error) {
	var out []store.AvailabilityRule
	for _, r := range f.rules {
		if r.DayOfWeek == dow {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAppointments struct {
	mu     sync.Mutex
	booked []store.Appointment
}

func (f *fakeAppointments) ListForDate(context.Context, string, time.Time, []string) ([]store.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Appointment, len(f.booked))
	copy(out, f.booked)
	return out, nil
}

func (f *fakeAppointments) Book(_ context.Context, a *store.Appointment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.booked {
		if a.StartAt.Before(existing.EndAt) && existing.StartAt.Before(a.EndAt) {
			return "", errOverlap
		}
	}
	a.ID = uuid.NewString()
	f.booked = append(f.booked, *a)
	return a.ID, nil
}

var errOverlap = &overlapError{}

type overlapError struct{}

func (*overlapError) Error() string { return "slot already booked" }

func TestAvailableSlotsRespectsDurationAndOverlap(t *testing.T) {
	future := time.Now().Add(72 * time.Hour)
	dow := int(future.Weekday())

	types := &fakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30}}
	rules := &fakeRules{rules: []store.AvailabilityRule{
		{DayOfWeek: dow, StartTime: "09:00", EndTime: "10:00", Active: true},
	}}
	appts := &fakeAppointments{}

	svc := scheduling.New(types, rules, appts)
	slots, err := svc.AvailableSlots(context.Background(), "t1", future, "consult")
	require.NoError(t, err)
	require.Len(t, slots, 2) // 09:00-09:30, 09:30-10:00
}

func TestAvailableSlotsEmptyWithoutRules(t *testing.T) {
	types := &fakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30}}
	rules := &fakeRules{}
	appts := &fakeAppointments{}

	svc := scheduling.New(types, rules, appts)
	slots, err := svc.AvailableSlots(context.Background(), "t1", time.Now().Add(48*time.Hour), "consult")
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestBookSecondOverlappingAttemptFails(t *testing.T) {
	types := &fakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30}}
	appts := &fakeAppointments{}
	svc := scheduling.New(types, &fakeRules{}, appts)

	start := time.Now().Add(24 * time.Hour)
	req := scheduling.BookingRequest{TenantID: "t1", AppointmentTypeID: "consult", StartAt: start}

	_, _, err1 := svc.Book(context.Background(), req, nil)
	_, _, err2 := svc.Book(context.Background(), req, nil)

	require.NoError(t, err1)
	require.Error(t, err2)
}

package nodeexec_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/nodeexec"
	"github.com/convoflow/workflow-engine/internal/scheduling"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

type bookingFakeTypes struct{ t store.AppointmentType }

func (f *bookingFakeTypes) Get(context.Context, string, string) (*store.AppointmentType, error) {
	return &f.t, nil
}
func (f *bookingFakeTypes) FirstActive(context.Context, string) (*store.AppointmentType, error) {
	return &f.t, nil
}

type bookingFakeRules struct{ rules []store.AvailabilityRule }

func (f *bookingFakeRules) ListActiveForDay(_ context.Context, _ string, dow int) ([]store.AvailabilityRule, error) {
	var out []store.AvailabilityRule
	for _, r := range f.rules {
		if r.DayOfWeek == dow {
			out = append(out, r)
		}
	}
	return out, nil
}

type bookingFakeAppointments struct{ booked []store.Appointment }

func (f *bookingFakeAppointments) ListForDate(context.Context, string, time.Time, []string) ([]store.Appointment, error) {
	return f.booked, nil
}
func (f *bookingFakeAppointments) Book(_ context.Context, a *store.Appointment) (string, error) {
	a.ID = "appt-1"
	f.booked = append(f.booked, *a)
	return a.ID, nil
}

type fakeGen struct{ response string }

func (f *fakeGen) Generate(context.Context, string, string, string, string) string { return f.response }

func TestAppointmentBookingProposesSlots(t *testing.T) {
	now := time.Now()
	dow := int(now.AddDate(0, 0, 1).Weekday())
	svc := scheduling.New(
		&bookingFakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30}},
		&bookingFakeRules{rules: []store.AvailabilityRule{{DayOfWeek: dow, StartTime: "09:00", EndTime: "10:00", Active: true}}},
		&bookingFakeAppointments{},
	)
	exec := nodeexec.AppointmentBookingExecutor{Scheduling: svc, Generator: &fakeGen{response: "Pick a time!"}}

	node := workflow.Node{ID: "appt-node", Config: map[string]any{"appointment_type_id": "consult"}}
	doc := ctxdoc.Document{"business_id": "tenant-1", "trigger": map[string]any{"user_id": "u1"}}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.True(t, res.Suspend)
	require.Equal(t, "suspend", res.Output["orchestration_signal"])
	require.NotEmpty(t, res.Output["pending_slots"])
}

func TestAppointmentBookingProposeFallsBackToFirstActiveType(t *testing.T) {
	now := time.Now()
	dow := int(now.AddDate(0, 0, 1).Weekday())
	svc := scheduling.New(
		&bookingFakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30, Active: true}},
		&bookingFakeRules{rules: []store.AvailabilityRule{{DayOfWeek: dow, StartTime: "09:00", EndTime: "10:00", Active: true}}},
		&bookingFakeAppointments{},
	)
	exec := nodeexec.AppointmentBookingExecutor{Scheduling: svc, Generator: &fakeGen{response: "Pick a time!"}}

	// No appointment_type_id configured on the node: propose must resolve
	// one via store.AppointmentTypes.FirstActive rather than bailing out.
	node := workflow.Node{ID: "appt-node", Config: map[string]any{}}
	doc := ctxdoc.Document{"business_id": "tenant-1", "trigger": map[string]any{"user_id": "u1"}}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.True(t, res.Suspend)
	require.NotEmpty(t, res.Output["pending_slots"])
	require.Equal(t, "consult", res.Output["appointment_type_id"])
}

func TestAppointmentBookingResumesAndBooks(t *testing.T) {
	appts := &bookingFakeAppointments{}
	svc := scheduling.New(
		&bookingFakeTypes{t: store.AppointmentType{ID: "consult", DurationMinutes: 30}},
		&bookingFakeRules{},
		appts,
	)
	exec := nodeexec.AppointmentBookingExecutor{Scheduling: svc, Generator: &fakeGen{response: "0"}}

	slotStart := time.Now().Add(48 * time.Hour)
	node := workflow.Node{ID: "appt-node", Config: map[string]any{"appointment_type_id": "consult"}}
	doc := ctxdoc.Document{
		"business_id":   "tenant-1",
		"trigger":       map[string]any{"user_id": "u1"},
		"latest_reply":  "the first one please",
		"pending_slots": []any{map[string]any{"start": slotStart.Format(time.RFC3339), "display": "tomorrow at 9am"}},
	}

	res, err := exec.Execute(context.Background(), node, doc)
	require.NoError(t, err)
	require.Equal(t, "success", res.Output["booking_result"])
	require.Equal(t, "appt-1", res.Output["appointment_id"])
	require.Len(t, appts.booked, 1)
}

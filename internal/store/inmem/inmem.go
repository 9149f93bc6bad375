// Package inmem provides deterministic in-memory implementations of every
// internal/store interface, for dispatcher/arbitration/integration tests
// that need a full repository layer without a live Postgres/Mongo. Grounded
// on the teacher's own in-memory test doubles for its store interfaces,
// generalized here to cover the full CRM + scheduling + workflow surface.
//
// Store holds all state behind a single mutex. Since several store
// interfaces declare a method named Get/Create with different signatures,
// Store itself cannot implement more than one at a time — instead it
// exposes one typed accessor per interface (Workflows(), Executions(),
// Leads(), ...), each a thin view backed by the same Store.
package inmem

import (
	"context"
	"sync"

	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

type message struct {
	role, body string
}

// Store is the in-memory backing for every repository interface in
// internal/store.
type Store struct {
	mu sync.Mutex

	tenants map[string]string

	workflows  map[string]*workflow.Workflow
	executions map[string]*workflow.Execution
	steps      map[string][]*workflow.Step

	conversations map[string]string
	messages      map[string][]message

	settings map[string]map[string]any
	docs     map[string][]store.KnowledgeDoc

	leads      map[string]*store.Lead
	activities []*store.LeadActivity
	tickets    map[string]*store.Ticket

	apptTypes  map[string]*store.AppointmentType
	availRules map[string][]store.AvailabilityRule
	appts      map[string]*store.Appointment
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		tenants:       make(map[string]string),
		workflows:     make(map[string]*workflow.Workflow),
		executions:    make(map[string]*workflow.Execution),
		steps:         make(map[string][]*workflow.Step),
		conversations: make(map[string]string),
		messages:      make(map[string][]message),
		settings:      make(map[string]map[string]any),
		docs:          make(map[string][]store.KnowledgeDoc),
		leads:         make(map[string]*store.Lead),
		tickets:       make(map[string]*store.Ticket),
		apptTypes:     make(map[string]*store.AppointmentType),
		availRules:    make(map[string][]store.AvailabilityRule),
		appts:         make(map[string]*store.Appointment),
	}
}

// SetSubscriptionStatus seeds a tenant's subscription status for tests.
func (s *Store) SetSubscriptionStatus(tenantID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenantID] = status
}

// Tenants returns the store.Tenants view of this Store.
func (s *Store) Tenants() store.Tenants { return tenantsView{s} }

type tenantsView struct{ s *Store }

func (v tenantsView) SubscriptionStatus(ctx context.Context, tenantID string) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	status, ok := v.s.tenants[tenantID]
	if !ok {
		return "", store.ErrNotFound
	}
	return status, nil
}

var _ store.Tenants = tenantsView{}

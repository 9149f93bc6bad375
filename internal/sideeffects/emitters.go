// Package sideeffects wraps the store/channel/hooks layers with the
// change-tracking and event-emission behavior node executors rely on but
// that doesn't belong in a single executor: diffing a lead update into
// per-field activity log entries and re-triggering workflows on status
// change, mirroring original_source/services/db_service.py's update_lead
// and save_lead (spec §4.10, C10).
package sideeffects

import (
	"context"
	"fmt"

	"github.com/convoflow/workflow-engine/internal/channel"
	"github.com/convoflow/workflow-engine/internal/hooks"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/trigger"
)

// Emitter bundles the repositories and side channels a single tenant's
// CRM mutations need. Node executors and the dispatcher hold one of
// these rather than the raw store interfaces so that activity logging
// and re-triggering happen exactly once, in one place.
type Emitter struct {
	Leads         store.Leads
	Tickets       store.Tickets
	Conversations store.Conversations
	Sender        channel.Sender
	Bus           hooks.Bus

	// Resolve, when set, is invoked after a lead status change so a
	// lead_status_update event can start any matching workflow. The
	// dispatcher supplies this; tests may leave it nil.
	Resolve func(ctx context.Context, tenantID string, event trigger.Event) error
}

// trackedFields mirrors update_lead's change list: only these fields are
// worth an activity log entry, everything else is applied silently.
var trackedFields = []string{"status", "value", "tags"}

// SaveLead persists a brand-new lead and logs a creation activity,
// mirroring save_lead's logging of the new record.
func (e *Emitter) SaveLead(ctx context.Context, l *store.Lead) (string, error) {
	id, err := e.Leads.Save(ctx, l)
	if err != nil {
		return "", fmt.Errorf("sideeffects: save lead: %w", err)
	}
	_ = e.Leads.LogActivity(ctx, &store.LeadActivity{
		LeadID:    id,
		TenantID:  l.TenantID,
		Type:      "created",
		Content:   map[string]any{"name": l.Name, "contact": l.Contact},
		CreatedBy: "system",
	})
	return id, nil
}

// UpdateLead applies updates to a lead, logs one activity entry per
// tracked field whose value actually changed, and — if status changed —
// emits a lead_status_update event so any workflow gated on that trigger
// kind gets a chance to start. updatedBy records who/what made the
// change ("system" for AI-driven updates).
func (e *Emitter) UpdateLead(ctx context.Context, tenantID, leadID string, updates map[string]any, updatedBy string) (*store.Lead, error) {
	before, err := e.Leads.Get(ctx, tenantID, leadID)
	if err != nil {
		return nil, fmt.Errorf("sideeffects: load lead before update: %w", err)
	}

	changes := diffTrackedFields(before, updates)

	after, err := e.Leads.Update(ctx, tenantID, leadID, updates)
	if err != nil {
		return nil, fmt.Errorf("sideeffects: update lead: %w", err)
	}

	for _, c := range changes {
		_ = e.Leads.LogActivity(ctx, &store.LeadActivity{
			LeadID:    leadID,
			TenantID:  tenantID,
			Type:      c.field + "_change",
			Content:   map[string]any{"field": c.field, "old": c.old, "new": c.new},
			CreatedBy: updatedBy,
		})
	}

	if e.Bus != nil {
		_ = e.Bus.Publish(ctx, hooks.Event{
			Type:     hooks.LeadMutated,
			TenantID: tenantID,
			Data:     map[string]any{"lead_id": leadID, "changes": changes},
		})
	}

	if e.Resolve != nil {
		for _, c := range changes {
			if c.field != "status" {
				continue
			}
			newStatus, _ := c.new.(string)
			_ = e.Resolve(ctx, tenantID, trigger.Event{
				Kind:      "lead_status_update",
				NewStatus: newStatus,
				FromUser:  leadContact(after),
			})
		}
	}

	return after, nil
}

type fieldChange struct {
	field    string
	old, new any
}

func diffTrackedFields(before *store.Lead, updates map[string]any) []fieldChange {
	var changes []fieldChange
	for _, field := range trackedFields {
		newVal, present := updates[field]
		if !present {
			continue
		}
		oldVal := fieldValue(before, field)
		if !equalFieldValue(oldVal, newVal) {
			changes = append(changes, fieldChange{field: field, old: oldVal, new: newVal})
		}
	}
	return changes
}

func fieldValue(l *store.Lead, field string) any {
	switch field {
	case "status":
		return l.Status
	case "value":
		if l.Value == nil {
			return nil
		}
		return *l.Value
	case "tags":
		return l.Tags
	default:
		return nil
	}
}

func equalFieldValue(old, new any) bool {
	if old == nil && new == nil {
		return true
	}
	if tagsOld, ok := old.([]string); ok {
		tagsNew, ok2 := new.([]string)
		if !ok2 || len(tagsOld) != len(tagsNew) {
			return false
		}
		for i := range tagsOld {
			if tagsOld[i] != tagsNew[i] {
				return false
			}
		}
		return true
	}
	return old == new
}

func leadContact(l *store.Lead) string {
	if l == nil {
		return ""
	}
	return l.Contact
}

// CreateTicket creates a support ticket and logs it on the event bus.
func (e *Emitter) CreateTicket(ctx context.Context, t *store.Ticket) (string, error) {
	id, err := e.Tickets.Create(ctx, t)
	if err != nil {
		return "", fmt.Errorf("sideeffects: create ticket: %w", err)
	}
	if e.Bus != nil {
		_ = e.Bus.Publish(ctx, hooks.Event{
			Type:     hooks.LeadMutated,
			TenantID: t.TenantID,
			Data:     map[string]any{"ticket_id": id, "subject": t.Subject},
		})
	}
	return id, nil
}

// SendMessage delivers body to target over Sender and records it in the
// conversation transcript, mirroring send_lead_message's dual write.
func (e *Emitter) SendMessage(ctx context.Context, tenantID, participant, channelName, target, body string) error {
	convID, err := e.Conversations.EnsureConversation(ctx, tenantID, participant, channelName)
	if err != nil {
		return fmt.Errorf("sideeffects: ensure conversation: %w", err)
	}
	if err := e.Conversations.StoreMessage(ctx, convID, "assistant", body); err != nil {
		return fmt.Errorf("sideeffects: store message: %w", err)
	}
	if e.Sender != nil && target != "" {
		if err := e.Sender.Send(ctx, tenantID, target, body); err != nil {
			return fmt.Errorf("sideeffects: send message: %w", err)
		}
	}
	if e.Bus != nil {
		_ = e.Bus.Publish(ctx, hooks.Event{
			Type:     hooks.MessageSent,
			TenantID: tenantID,
			Data:     map[string]any{"participant": participant, "body": body},
		})
	}
	return nil
}

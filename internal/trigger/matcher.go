// Package trigger implements C5: matching an inbound event against a
// tenant's active workflows. Ported from
// original_source/services/workflow_engine.py's trigger_workflow and
// _check_trigger_match.
package trigger

import "strings"

// Event is a normalized inbound trigger, equivalent to trigger_data in the
// original implementation.
type Event struct {
	Kind      string // "message_created" or "lead_status_update"
	Message   string
	Intent    string
	NewStatus string
	FromUser  string // from_number or user_id, whichever is present
	Channel   string // "whatsapp", "web", ... ; selects which key FromUser fills below
}

// ToContext renders the event the way an Execution's context document
// stores it under "trigger": from_number for WhatsApp-shaped participants,
// user_id otherwise, matching the key names condition/action/lead_capture
// executors already read via triggerString.
func (e Event) ToContext() map[string]any {
	m := map[string]any{
		"kind":         e.Kind,
		"message_body": e.Message,
		"intent":       e.Intent,
		"new_status":   e.NewStatus,
	}
	if e.Channel == "whatsapp" {
		m["from_number"] = e.FromUser
	} else {
		m["user_id"] = e.FromUser
	}
	return m
}

// KindsFor returns the workflow trigger kinds eligible to match this
// event, extending the event's own kind the same way trigger_workflow
// does: a message_created event can also match "keyword" and "intent"
// workflows, and a lead_status_update event can also match "lead_event"
// workflows.
func KindsFor(eventKind string) []string {
	switch eventKind {
	case "message_created":
		return []string{"message_created", "keyword", "intent"}
	case "lead_status_update":
		return []string{"lead_status_update", "lead_event"}
	default:
		return []string{eventKind}
	}
}

// Matches evaluates whether a workflow's trigger_config matches the
// event, per _check_trigger_match: an empty config always matches, and
// each configured key (keyword/intent/status) must match if present.
func Matches(config map[string]any, event Event) bool {
	if len(config) == 0 {
		return true
	}

	if kw, ok := config["keyword"].(string); ok {
		if !strings.Contains(strings.ToLower(event.Message), strings.ToLower(kw)) {
			return false
		}
	}

	if intent, ok := config["intent"].(string); ok {
		if event.Intent != intent {
			return false
		}
	}

	if status, ok := config["status"].(string); ok {
		if !strings.EqualFold(event.NewStatus, status) {
			return false
		}
	}

	return true
}

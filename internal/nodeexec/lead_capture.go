package nodeexec

import (
	"context"
	"strings"
	"time"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// LeadCaptureExecutor handles workflow.NodeLeadCapture: it assembles a
// store.Lead from the node config, the trigger, and any ai_output/
// extracted_data already merged into the context document, then persists
// it. Ported from workflow_engine.py's "lead_capture" node_type.
type LeadCaptureExecutor struct {
	Leads store.Leads
}

func (e LeadCaptureExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	nameTemplate, _ := node.Config["name"].(string)
	if nameTemplate == "" {
		nameTemplate = "{{customer_name}}"
	}
	name := ctxdoc.Hydrate(nameTemplate, doc)
	if name == nameTemplate && strings.Contains(name, "{{") {
		if v, ok := doc["customer_name"].(string); ok && v != "" {
			name = v
		} else {
			name = "Unknown"
		}
	}

	notesTemplate, _ := node.Config["notes"].(string)
	if notesTemplate == "" {
		notesTemplate = "Captured via workflow {{workflow_id}}"
	}
	notes := strings.ReplaceAll(ctxdoc.Hydrate(notesTemplate, doc), "{{workflow_id}}", node.WorkflowID)

	contact := triggerString(doc, "from_number")
	if contact == "" {
		contact = triggerString(doc, "user_id")
	}

	aiData := aiOutputMap(doc)

	status, _ := node.Config["status"].(string)
	if status == "" {
		status = "new"
	}

	lead := &store.Lead{
		TenantID:        stringField(doc, "business_id"),
		Name:            name,
		Contact:         contact,
		Email:           firstNonEmpty(stringField(aiData, "email"), emailLike(contact)),
		Phone:           firstNonEmpty(stringField(aiData, "phone"), phoneLike(contact)),
		Source:          "workflow_automation",
		Notes:           notes,
		Status:          status,
		Tags:            stringSlice(aiData["tags"]),
		CustomFields:    aiData,
		ConversationID:  triggerString(doc, "user_id"),
		LastInteraction: time.Now(),
	}
	if v, ok := numericField(aiData, "budget"); ok {
		lead.Value = &v
	} else if v, ok := numericField(aiData, "value"); ok {
		lead.Value = &v
	}

	id, err := e.Leads.Save(ctx, lead)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: map[string]any{"lead_id": id, "lead_status": "captured"}}, nil
}

func aiOutputMap(doc ctxdoc.Document) map[string]any {
	if m, ok := doc["ai_output"].(map[string]any); ok {
		return m
	}
	if m, ok := doc["extracted_data"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func emailLike(contact string) string {
	if strings.Contains(contact, "@") {
		return contact
	}
	return ""
}

func phoneLike(contact string) string {
	if contact != "" && !strings.Contains(contact, "@") {
		return contact
	}
	return ""
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numericField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
